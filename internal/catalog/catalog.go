package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	ioutils "github.com/handiism/dpm-downloader/internal/io"
	"github.com/handiism/dpm-downloader/internal/model"
)

type minghuajiRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Author   string `csv:"author"`
	Dynasty  string `csv:"dynasty"`
	Material string `csv:"material"`
	Color    string `csv:"color"`
	Height   string `csv:"height"`
	Width    string `csv:"width"`
}

type collectionRow struct {
	ID          string `csv:"id"`
	Name        string `csv:"name"`
	Author      string `csv:"author"`
	Dynasty     string `csv:"dynasty"`
	Category    string `csv:"category"`
	MhjID       string `csv:"mhj_id"`
	InventoryID string `csv:"inventory_id"`
	Material    string `csv:"material"`
	Color       string `csv:"color"`
	Height      string `csv:"height"`
	Width       string `csv:"width"`
}

// Catalog is the ordered painting list of one source.
type Catalog struct {
	Source    model.Source
	Paintings []model.Painting

	index map[string]int
}

// New returns an empty catalog.
func New(source model.Source) *Catalog {
	return &Catalog{Source: source, index: make(map[string]int)}
}

// Load reads the catalog at path. A missing file yields an empty catalog.
// Duplicate ids in the file keep their first row.
func Load(path string, source model.Source) (*Catalog, error) {
	c := New(source)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return c, nil
	}

	var paintings []model.Painting
	switch source {
	case model.SourceCollection:
		var rows []collectionRow
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrParse, path, err)
		}
		for _, r := range rows {
			paintings = append(paintings, model.Painting{
				ID: r.ID, Name: r.Name, Author: r.Author, Dynasty: r.Dynasty,
				Category: r.Category, MhjID: r.MhjID, InventoryID: r.InventoryID,
				Material: r.Material, Color: r.Color, Height: r.Height, Width: r.Width,
			})
		}
	default:
		var rows []minghuajiRow
		if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", model.ErrParse, path, err)
		}
		for _, r := range rows {
			paintings = append(paintings, model.Painting{
				ID: r.ID, Name: r.Name, Author: r.Author, Dynasty: r.Dynasty,
				Material: r.Material, Color: r.Color, Height: r.Height, Width: r.Width,
			})
		}
	}

	c.Merge(paintings)
	return c, nil
}

// Merge appends paintings whose id is not yet listed and returns how many
// were added. Paintings without an id are ignored.
func (c *Catalog) Merge(paintings []model.Painting) int {
	if c.index == nil {
		c.reindex()
	}
	added := 0
	for _, p := range paintings {
		if p.ID == "" {
			continue
		}
		if _, ok := c.index[p.ID]; ok {
			continue
		}
		c.index[p.ID] = len(c.Paintings)
		c.Paintings = append(c.Paintings, p)
		added++
	}
	return added
}

// Get returns the painting with the given id.
func (c *Catalog) Get(id string) (model.Painting, bool) {
	if c.index == nil {
		c.reindex()
	}
	i, ok := c.index[id]
	if !ok {
		return model.Painting{}, false
	}
	return c.Paintings[i], true
}

// Update replaces the listed painting with the same id.
func (c *Catalog) Update(p model.Painting) bool {
	if c.index == nil {
		c.reindex()
	}
	i, ok := c.index[p.ID]
	if !ok {
		return false
	}
	c.Paintings[i] = p
	return true
}

// IDs returns the painting ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.Paintings))
	for i, p := range c.Paintings {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of paintings.
func (c *Catalog) Len() int {
	return len(c.Paintings)
}

// Save writes the catalog to path atomically.
func (c *Catalog) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch c.Source {
	case model.SourceCollection:
		rows := make([]collectionRow, len(c.Paintings))
		for i, p := range c.Paintings {
			rows[i] = collectionRow{
				ID: p.ID, Name: p.Name, Author: p.Author, Dynasty: p.Dynasty,
				Category: p.Category, MhjID: p.MhjID, InventoryID: p.InventoryID,
				Material: p.Material, Color: p.Color, Height: p.Height, Width: p.Width,
			}
		}
		data, err = gocsv.MarshalBytes(&rows)
	default:
		rows := make([]minghuajiRow, len(c.Paintings))
		for i, p := range c.Paintings {
			rows[i] = minghuajiRow{
				ID: p.ID, Name: p.Name, Author: p.Author, Dynasty: p.Dynasty,
				Material: p.Material, Color: p.Color, Height: p.Height, Width: p.Width,
			}
		}
		data, err = gocsv.MarshalBytes(&rows)
	}
	if err != nil {
		return err
	}

	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return ioutils.WriteFileAtomic(path, data)
}

func (c *Catalog) reindex() {
	c.index = make(map[string]int, len(c.Paintings))
	for i, p := range c.Paintings {
		if _, ok := c.index[p.ID]; !ok {
			c.index[p.ID] = i
		}
	}
}
