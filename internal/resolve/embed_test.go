package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relstore/internal/ir"
)

func TestEmbed_Single(t *testing.T) {
	rec := ir.IRObject{"id": ir.IRString("c1"), "customer": ir.IRString("r1")}
	customer := ir.IRObject{"id": ir.IRString("r1"), "name": ir.IRString("Rambo")}

	assert.True(t, Embed(rec, "customer", customer))
	assert.Equal(t, ir.IRString("r1"), rec["customer"])
	assert.Equal(t, customer, rec[ir.EmbeddedKey].(ir.IRObject)["customer"])
}

func TestEmbed_NormalizesToFetchedIDs(t *testing.T) {
	rec := ir.IRObject{"id": ir.IRInt(1), "comments": ir.IRArray{ir.IRString("1"), ir.IRString("2")}}
	fetched := ir.IRArray{ir.IRObject{"id": ir.IRInt(1)}, ir.IRObject{"id": ir.IRInt(2)}}

	assert.True(t, Embed(rec, "comments", fetched))
	assert.Equal(t, ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, rec["comments"])
}

func TestEmbed_KeepsExistingEmbeds(t *testing.T) {
	rec := ir.IRObject{"id": ir.IRInt(1), "a": ir.IRInt(2), "b": ir.IRInt(3)}

	Embed(rec, "a", ir.IRObject{"id": ir.IRInt(2)})
	Embed(rec, "b", ir.IRObject{"id": ir.IRInt(3)})
	assert.Len(t, rec[ir.EmbeddedKey].(ir.IRObject), 2)
}

func TestEmbed_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		fetched ir.IRValue
	}{
		{"object without id", ir.IRObject{"name": ir.IRString("x")}},
		{"object with falsy id", ir.IRObject{"id": ir.IRString("")}},
		{"empty collection", ir.IRArray{}},
		{"element without id", ir.IRArray{ir.IRObject{"id": ir.IRInt(1)}, ir.IRObject{}}},
		{"element not an object", ir.IRArray{ir.IRInt(1)}},
		{"scalar", ir.IRInt(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ir.IRObject{"id": ir.IRInt(1), "rel": ir.IRString("keep")}
			assert.False(t, Embed(rec, "rel", tt.fetched))
			assert.Equal(t, ir.IRString("keep"), rec["rel"])
			assert.NotContains(t, rec, ir.EmbeddedKey)
		})
	}
}

func TestEmbed_CompactsArrayFieldEvenWhenRejected(t *testing.T) {
	rec := ir.IRObject{"id": ir.IRInt(1), "tags": ir.IRArray{ir.IRInt(3), ir.IRNull{}, ir.IRString(""), ir.IRInt(0)}}

	assert.False(t, Embed(rec, "tags", ir.IRArray{}))
	assert.Equal(t, ir.IRArray{ir.IRInt(3)}, rec["tags"])
}
