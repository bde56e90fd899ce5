package testutil

import (
	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/schema"
)

// BlogTypes returns a small blog model:
//
//	post    hasMany comments -> comment, belongsTo author -> user
//	comment belongsTo post -> post
//	user    hasOne profile -> profile
//	profile
//
// post and comment reference each other, so resolving either one exercises
// the one-hop bound.
func BlogTypes() []ir.TypeSchema {
	return []ir.TypeSchema{
		{Name: "post", Relationships: []ir.Relationship{
			{Name: "comments", Kind: ir.HasMany, Target: "comment"},
			{Name: "author", Kind: ir.BelongsTo, Target: "user"},
		}},
		{Name: "comment", Relationships: []ir.Relationship{
			{Name: "post", Kind: ir.BelongsTo, Target: "post"},
		}},
		{Name: "user", Relationships: []ir.Relationship{
			{Name: "profile", Kind: ir.HasOne, Target: "profile"},
		}},
		{Name: "profile"},
	}
}

// BlogSchemas returns BlogTypes as a registry.
func BlogSchemas() *schema.Registry {
	return schema.NewRegistry(BlogTypes()...)
}
