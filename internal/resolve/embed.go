package resolve

import "github.com/roach88/relstore/internal/ir"

// Embed attaches fetched under record[ir.EmbeddedKey][name] and normalizes
// record[name] to the fetched id (object) or ids (array). It reports
// whether anything was embedded.
//
// A single record must carry a truthy id; a collection must be non-empty
// and every element must carry one. Otherwise nothing is embedded and the
// field keeps its value. Either way, if record[name] is an array afterwards
// its falsy entries are dropped.
func Embed(record ir.IRObject, name string, fetched ir.IRValue) bool {
	ids, ok := fetchedIDs(fetched)
	if ok {
		embedded, isObj := record[ir.EmbeddedKey].(ir.IRObject)
		if !isObj {
			embedded = ir.IRObject{}
			record[ir.EmbeddedKey] = embedded
		}
		embedded[name] = fetched
		record[name] = ids
	}

	if arr, isArr := record[name].(ir.IRArray); isArr {
		record[name] = compact(arr)
	}
	return ok
}

// fetchedIDs returns the id of a single record or the ids of a collection.
func fetchedIDs(fetched ir.IRValue) (ir.IRValue, bool) {
	switch f := fetched.(type) {
	case ir.IRObject:
		id, ok := truthyID(f)
		return id, ok
	case ir.IRArray:
		if len(f) == 0 {
			return nil, false
		}
		ids := make(ir.IRArray, 0, len(f))
		for _, elem := range f {
			obj, isObj := elem.(ir.IRObject)
			if !isObj {
				return nil, false
			}
			id, ok := truthyID(obj)
			if !ok {
				return nil, false
			}
			ids = append(ids, id)
		}
		return ids, true
	default:
		return nil, false
	}
}

func truthyID(obj ir.IRObject) (ir.IRValue, bool) {
	id, ok := obj[ir.IDField]
	if !ok || !ir.Truthy(id) {
		return nil, false
	}
	return id, true
}

func compact(arr ir.IRArray) ir.IRArray {
	out := make(ir.IRArray, 0, len(arr))
	for _, v := range arr {
		if ir.Truthy(v) {
			out = append(out, v)
		}
	}
	return out
}
