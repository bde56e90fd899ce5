// Package records is the public face of relstore: a typed record store
// over a single key-value blob with one-hop relationship resolution.
//
// A Store is built from a device and a schema provider:
//
//	store := records.New(device.NewMemory(), registry)
//	created, err := store.CreateRecord(ctx, "post", records.Attributes{
//		"id": ir.IRInt(1), "title": ir.IRString("A"), "comments": ir.IRArray{ir.IRInt(1)},
//	})
//	post, err := store.Find(ctx, "post", "1")
//	// post["_embedded"]["comments"] holds the referenced comments
//
// Reads (Find, FindMany, FindQuery) embed directly referenced records one
// hop deep; FindAll never embeds. Mutations read the whole namespace,
// change it and write the whole blob back. They are serialized by a
// store-wide lock, so concurrent mutations through one Store never lose
// each other's changes. Separate Store values sharing a device are not
// coordinated.
package records
