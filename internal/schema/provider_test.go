package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relstore/internal/ir"
)

func blogTypes() []ir.TypeSchema {
	return []ir.TypeSchema{
		{Name: "post", Relationships: []ir.Relationship{
			{Name: "comments", Kind: ir.HasMany, Target: "comment"},
			{Name: "author", Kind: ir.BelongsTo, Target: "user"},
		}},
		{Name: "comment", Relationships: []ir.Relationship{
			{Name: "post", Kind: ir.BelongsTo, Target: "post"},
		}},
		{Name: "user", Namespace: "users"},
	}
}

func TestRegistry_Schema(t *testing.T) {
	r := NewRegistry(blogTypes()...)

	post, err := r.Schema("post")
	require.NoError(t, err)
	assert.Equal(t, "post", post.Name)
	require.Len(t, post.Relationships, 2)
	assert.Equal(t, "comments", post.Relationships[0].Name)

	user, err := r.Schema("user")
	require.NoError(t, err)
	assert.Equal(t, "users", user.NamespaceKey())
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry(blogTypes()...)

	_, err := r.Schema("tag")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Contains(t, err.Error(), `"tag"`)
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := NewRegistry(blogTypes()...)

	post, err := r.Schema("post")
	require.NoError(t, err)
	post.Relationships[0].Target = "mutated"

	again, err := r.Schema("post")
	require.NoError(t, err)
	assert.Equal(t, "comment", again.Relationships[0].Target)
}

func TestRegistry_TypesInDeclarationOrder(t *testing.T) {
	r := NewRegistry(blogTypes()...)
	assert.Equal(t, []string{"post", "comment", "user"}, r.Types())
	assert.Len(t, r.All(), 3)
}

func TestPermissive(t *testing.T) {
	p := Permissive(NewRegistry(blogTypes()...))

	tag, err := p.Schema("tag")
	require.NoError(t, err)
	assert.Equal(t, ir.TypeSchema{Name: "tag"}, tag)

	post, err := p.Schema("post")
	require.NoError(t, err)
	assert.Len(t, post.Relationships, 2)
}
