package fixture

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/records"
)

// Verify checks every expectation and returns one error per failed check.
// Device failures abort verification and are returned alone.
func Verify(ctx context.Context, store Store, fx *Fixture) []error {
	var errs []error
	for i, exp := range fx.Expect {
		got, err := store.Find(ctx, exp.Type, exp.ID)
		switch {
		case exp.Missing && errors.Is(err, records.ErrNotFound):
			continue
		case exp.Missing && err == nil:
			errs = append(errs, fmt.Errorf("expect[%d]: %s %q exists, expected missing", i, exp.Type, exp.ID))
			continue
		case errors.Is(err, records.ErrNotFound):
			errs = append(errs, fmt.Errorf("expect[%d]: %s %q not found", i, exp.Type, exp.ID))
			continue
		case err != nil:
			return []error{fmt.Errorf("expect[%d]: %w", i, err)}
		}

		errs = append(errs, checkAttributes(i, exp, got)...)
		errs = append(errs, checkEmbedded(i, exp, got)...)
	}
	return errs
}

func checkAttributes(i int, exp Expectation, got ir.IRObject) []error {
	if exp.Attributes == nil {
		return nil
	}
	want, err := ir.FromGo(exp.Attributes)
	if err != nil {
		return []error{fmt.Errorf("expect[%d]: attributes: %w", i, err)}
	}

	var errs []error
	for _, field := range want.(ir.IRObject).SortedKeys() {
		wantVal := want.(ir.IRObject)[field]
		gotVal, ok := got[field]
		if !ok {
			errs = append(errs, fmt.Errorf("expect[%d]: %s %q: field %q missing", i, exp.Type, exp.ID, field))
			continue
		}
		if !ir.Equal(wantVal, gotVal) {
			errs = append(errs, fmt.Errorf("expect[%d]: %s %q: field %q = %s, want %s",
				i, exp.Type, exp.ID, field, canonical(gotVal), canonical(wantVal)))
		}
	}
	return errs
}

func checkEmbedded(i int, exp Expectation, got ir.IRObject) []error {
	embedded, _ := got[ir.EmbeddedKey].(ir.IRObject)

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(exp.Embedded)) {
		want := exp.Embedded[name]
		n := 0
		switch v := embedded[name].(type) {
		case ir.IRArray:
			n = len(v)
		case ir.IRObject:
			n = 1
		}
		if n != want {
			errs = append(errs, fmt.Errorf("expect[%d]: %s %q: %d embedded %q, want %d",
				i, exp.Type, exp.ID, n, name, want))
		}
	}
	return errs
}

func canonical(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
