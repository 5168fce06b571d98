package model

import (
	"fmt"
	"strings"
)

// DeepZoomNamespace is the XML namespace of Deep Zoom image descriptors.
const DeepZoomNamespace = "http://schemas.microsoft.com/deepzoom/2008"

// TileDescriptor describes one deep-zoom tile pyramid.
//
// URL is the base from which the tile downloader appends level and tile
// coordinates, for example "https://host/path/image_files/". Overlap and
// TileSize are kept verbatim as published by the site.
type TileDescriptor struct {
	Xmlns    string
	URL      string
	Overlap  string
	TileSize string
	Format   string
	Width    int
	Height   int
}

// Validate checks the invariants every extractor must guarantee.
func (d TileDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: non-positive size %dx%d", ErrExtraction, d.Width, d.Height)
	}
	if !strings.HasPrefix(d.URL, "https://") {
		return fmt.Errorf("%w: tile url %q is not https", ErrExtraction, d.URL)
	}
	if d.Format == "" || d.TileSize == "" {
		return fmt.Errorf("%w: missing format or tile size", ErrExtraction)
	}
	return nil
}

// Extension returns the image file extension implied by Format, including the dot.
//
// Returns ".jpg" for "jpeg" and for an empty format.
func (d TileDescriptor) Extension() string {
	switch f := strings.ToLower(strings.TrimPrefix(d.Format, ".")); f {
	case "", "jpg", "jpeg":
		return ".jpg"
	default:
		return "." + f
	}
}
