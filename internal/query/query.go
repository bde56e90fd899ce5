package query

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/relstore/internal/ir"
)

// Mode selects how per-field results combine.
type Mode int

const (
	// ModeAll keeps a record when every predicate field matches.
	ModeAll Mode = iota
	// ModeLegacy keeps a record when the last predicate field matches.
	ModeLegacy
)

func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "all" or "legacy".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "all", "":
		return ModeAll, nil
	case "legacy":
		return ModeLegacy, nil
	default:
		return ModeAll, fmt.Errorf("unknown query mode %q", s)
	}
}

// Condition tests one field value. A nil value means the field is absent.
type Condition interface {
	fmt.Stringer
	matches(v ir.IRValue) bool
}

type equal struct {
	want ir.IRValue
}

// Equal matches fields structurally equal to want. An absent field never
// matches, not even Equal(ir.IRNull{}).
func Equal(want ir.IRValue) Condition {
	return equal{want: want}
}

func (c equal) matches(v ir.IRValue) bool {
	return v != nil && ir.Equal(c.want, v)
}

func (c equal) String() string {
	b, err := ir.MarshalCanonical(c.want)
	if err != nil {
		return fmt.Sprintf("= %v", c.want)
	}
	return "= " + string(b)
}

type pattern struct {
	re *regexp.Regexp
}

// Pattern matches fields whose string form (see StringForm) matches re.
func Pattern(re *regexp.Regexp) Condition {
	return pattern{re: re}
}

func (c pattern) matches(v ir.IRValue) bool {
	return c.re.MatchString(StringForm(v))
}

func (c pattern) String() string {
	return "~ /" + c.re.String() + "/"
}

// Predicate maps field names to conditions.
type Predicate map[string]Condition

// Fields returns the predicate's field names in evaluation order.
func (p Predicate) Fields() []string {
	fields := make([]string, 0, len(p))
	for f := range p {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// Keep reports whether rec satisfies p under mode. An empty predicate keeps
// every record in ModeAll and none in ModeLegacy.
func (p Predicate) Keep(rec ir.IRObject, mode Mode) bool {
	fields := p.Fields()
	if mode == ModeLegacy {
		keep := false
		for _, f := range fields {
			keep = p[f].matches(lookup(rec, f))
		}
		return keep
	}
	for _, f := range fields {
		if !p[f].matches(lookup(rec, f)) {
			return false
		}
	}
	return true
}

func lookup(rec ir.IRObject, field string) ir.IRValue {
	v, ok := rec[field]
	if !ok {
		return nil
	}
	return v
}

// Match returns deep copies of the records satisfying pred, ordered by id
// key (see ir.CompareIDKeys).
func Match(records map[string]ir.IRObject, pred Predicate, mode Mode) []ir.IRObject {
	keys := ir.Namespace{Records: records}.Keys()
	out := []ir.IRObject{}
	for _, k := range keys {
		rec := records[k]
		if pred.Keep(rec, mode) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// StringForm renders a value the way pattern conditions see it. Ints are
// base 10, arrays join their elements with commas, objects render as
// "[object Object]" and an absent field is "undefined".
func StringForm(v ir.IRValue) string {
	switch val := v.(type) {
	case nil:
		return "undefined"
	case ir.IRNull:
		return "null"
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(val))
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, elem := range val {
			if _, isNull := elem.(ir.IRNull); isNull {
				continue
			}
			parts[i] = StringForm(elem)
		}
		return strings.Join(parts, ",")
	case ir.IRObject:
		return "[object Object]"
	default:
		return fmt.Sprintf("%v", v)
	}
}
