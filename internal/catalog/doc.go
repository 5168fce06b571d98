// Package catalog stores the painting list of one source as a CSV file.
//
// The columns depend on the source:
//
//	mhj:        id,name,author,dynasty,material,color,height,width
//	collection: id,name,author,dynasty,category,mhj_id,inventory_id,material,color,height,width
//
// Typical use:
//
//	c, err := catalog.Load("paintings.csv", model.SourceMinghuaji)
//	added := c.Merge(page)
//	err = c.Save("paintings.csv")
//
// A missing file loads as an empty catalog. Columns absent from an existing
// file (for example before details were fetched) load as empty strings.
package catalog
