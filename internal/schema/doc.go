// Package schema supplies relationship metadata for record types.
//
// A Provider answers, per record type, which attributes reference other
// records, with what kind (belongsTo, hasOne, hasMany) and of which target
// type. Providers are either built in code (Registry) or compiled from CUE
// files (LoadDir):
//
//	type: post: {
//		namespace: "posts" // optional blob key, defaults to the type name
//		relationships: {
//			comments: {kind: "hasMany", target: "comment"}
//			author:   {kind: "belongsTo", target: "user"}
//		}
//	}
//
// Relationship graphs may be cyclic (post -> comment -> post). AnalyzeCycles
// reports such cycles for display; resolution stays bounded regardless
// because it only ever expands one hop.
package schema
