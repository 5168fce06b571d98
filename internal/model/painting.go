package model

// Painting is a single catalog entry.
//
// The listing phase fills ID, Name, Author, Dynasty and, for the collection
// site, Category. The detail phase fills the remaining fields. Dimensions are
// kept as the decimal strings shown on the site (centimetres) so that an
// unknown value stays empty instead of becoming zero.
type Painting struct {
	// ID is the site specific painting identifier. It is unique within a catalog.
	ID string

	Name     string
	Author   string
	Dynasty  string
	Category string

	// MhjID is the Minghua Ji identifier linked from a collection page, if any.
	MhjID string

	// InventoryID is the museum inventory number (collection site only).
	InventoryID string

	Material string
	Color    string
	Height   string
	Width    string
}

// HasDetails reports whether the detail phase has already run for this painting.
func (p *Painting) HasDetails() bool {
	return p.Material != "" || p.Color != "" || p.Height != "" || p.Width != ""
}

// PaintingDetail holds the fields scraped from a painting's detail page.
type PaintingDetail struct {
	MhjID       string
	InventoryID string
	Material    string
	Color       string
	Height      string
	Width       string
}

// Apply copies the detail fields into p.
func (d PaintingDetail) Apply(p *Painting) {
	p.MhjID = d.MhjID
	p.InventoryID = d.InventoryID
	p.Material = d.Material
	p.Color = d.Color
	p.Height = d.Height
	p.Width = d.Width
}
