package records

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relstore/internal/device"
	"github.com/roach88/relstore/internal/testutil"
)

var shortIDPattern = regexp.MustCompile(`^[0-9a-v]{5}$`)

func TestShortIDGenerator(t *testing.T) {
	gen := ShortIDGenerator{}
	seen := map[string]bool{}
	for range 200 {
		id := gen.Generate()
		assert.Regexp(t, shortIDPattern, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 190, "ids are random")
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Len(t, id, 36)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestStore_GenerateID(t *testing.T) {
	s := New(device.NewMemory(), testutil.BlogSchemas())
	assert.Regexp(t, shortIDPattern, s.GenerateID())

	seq := testutil.NewSequenceGenerator("post-")
	s = New(device.NewMemory(), testutil.BlogSchemas(), WithIDGenerator(seq))
	assert.Equal(t, "post-1", s.GenerateID())
	assert.Equal(t, "post-2", s.GenerateID())

	_, err := s.Find(context.Background(), "post", "post-1")
	assert.ErrorIs(t, err, ErrNotFound, "generated ids are not stored")
}
