package collection

import (
	"context"
	"encoding/xml"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/handiism/dpm-downloader/internal/model"
)

// DefaultBaseURL is the collection site root.
const DefaultBaseURL = "https://www.dpm.org.cn"

// Fetcher retrieves page bodies.
type Fetcher interface {
	GetString(ctx context.Context, url string) (string, error)
}

// Extractor builds tile descriptors from collection painting pages.
type Extractor struct {
	client  Fetcher
	baseURL string
}

// NewExtractor creates an Extractor for the site at baseURL.
func NewExtractor(client Fetcher, baseURL string) *Extractor {
	return &Extractor{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// PaintingURL returns the page of a painting.
func (e *Extractor) PaintingURL(id string) string {
	return e.baseURL + "/collection/paint/" + url.PathEscape(id) + ".html"
}

// Extract returns one descriptor per distinct tile resource on the painting
// page, in discovery order.
func (e *Extractor) Extract(ctx context.Context, paintingID string) ([]model.TileDescriptor, error) {
	pageURL := e.PaintingURL(paintingID)
	page, err := e.client.GetString(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	resources, err := TileResources(page, pageURL)
	if err != nil {
		return nil, err
	}

	descriptors := make([]model.TileDescriptor, 0, len(resources))
	for i, resource := range resources {
		var d model.TileDescriptor
		if IsTileGeneratorXML(resource) {
			d, err = e.fromTileGenerator(ctx, resource)
		} else {
			d, err = e.fromBigImage(ctx, resource)
		}
		if err != nil {
			return nil, fmt.Errorf("image %d (%s): %w", i, resource, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// tileGenerator is the XML published next to the tiles. The namespace
// attribute is misspelled "xmnls" on most of the site.
type tileGenerator struct {
	XMLName  xml.Name
	Xmnls    string `xml:"xmnls,attr"`
	Xmlns    string `xml:"xmlns,attr"`
	Overlap  string `xml:"Overlap,attr"`
	TileSize string `xml:"TileSize,attr"`
	Format   string `xml:"Format,attr"`
	Size     struct {
		Width  string `xml:"Width,attr"`
		Height string `xml:"Height,attr"`
	} `xml:"Size"`
}

func (e *Extractor) fromTileGenerator(ctx context.Context, resource string) (model.TileDescriptor, error) {
	body, err := e.client.GetString(ctx, resource)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	return ParseTileGenerator(body, resource)
}

// ParseTileGenerator builds a descriptor from a tile generator document
// fetched from resource.
func ParseTileGenerator(body, resource string) (model.TileDescriptor, error) {
	var tg tileGenerator
	if err := xml.Unmarshal([]byte(body), &tg); err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: tile generator: %v", model.ErrExtraction, err)
	}

	xmlns := model.DeepZoomNamespace
	switch {
	case tg.Xmnls != "":
		xmlns = tg.Xmnls
	case tg.Xmlns != "":
		xmlns = tg.Xmlns
	case tg.XMLName.Space != "":
		xmlns = tg.XMLName.Space
	}

	return newDescriptor(map[string]string{
		"xmlns":    xmlns,
		"url":      TileBaseURL(resource),
		"overlap":  tg.Overlap,
		"tilesize": tg.TileSize,
		"format":   tg.Format,
		"width":    tg.Size.Width,
		"height":   tg.Size.Height,
	})
}

func (e *Extractor) fromBigImage(ctx context.Context, resource string) (model.TileDescriptor, error) {
	page, err := e.client.GetString(ctx, resource)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	return ParseBigImage(page)
}

// ParseBigImage builds a descriptor from the viewer script of a big image
// page.
func ParseBigImage(page string) (model.TileDescriptor, error) {
	script, err := TrailingScript(page)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	if !strings.Contains(script, ViewerMarker) {
		return model.TileDescriptor{}, fmt.Errorf("%w: viewer script lacks %s", model.ErrExtraction, ViewerMarker)
	}
	fields := ScriptFields(script)
	if fields["xmlns"] == "" {
		fields["xmlns"] = model.DeepZoomNamespace
	}
	return newDescriptor(fields)
}

var descriptorFields = []string{"url", "overlap", "tilesize", "format", "width", "height"}

func newDescriptor(fields map[string]string) (model.TileDescriptor, error) {
	for _, key := range descriptorFields {
		if strings.TrimSpace(fields[key]) == "" {
			return model.TileDescriptor{}, fmt.Errorf("%w: missing %s", model.ErrExtraction, key)
		}
	}
	width, err := dimension(fields["width"])
	if err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: width: %v", model.ErrExtraction, err)
	}
	height, err := dimension(fields["height"])
	if err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: height: %v", model.ErrExtraction, err)
	}

	return model.TileDescriptor{
		Xmlns:    fields["xmlns"],
		URL:      strings.TrimSpace(fields["url"]),
		Overlap:  strings.TrimSpace(fields["overlap"]),
		TileSize: strings.TrimSpace(fields["tilesize"]),
		Format:   strings.TrimSpace(fields["format"]),
		Width:    width,
		Height:   height,
	}, nil
}

func dimension(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return int(math.Trunc(f)), nil
}
