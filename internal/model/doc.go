// Package model defines the core data structures used throughout
// the dpm-downloader application.
//
// # Painting
//
// Painting is one row of the catalog, as scraped from a listing page and
// optionally enriched from its detail page:
//
//	p := model.Painting{ID: "228361", Name: "清明上河图", Author: "张择端"}
//	fmt.Println(p.HasDetails())
//
// # TileDescriptor
//
// TileDescriptor is the normalized description of one deep-zoom tile pyramid.
// Extractors produce it, the dzi package serializes it and the external tile
// downloader consumes the serialized file:
//
//	d := model.TileDescriptor{
//	    Xmlns:    model.DeepZoomNamespace,
//	    URL:      "https://img.dpm.org.cn/tiles/228361_files/",
//	    Overlap:  "1",
//	    TileSize: "254",
//	    Format:   "jpg",
//	    Width:    30000,
//	    Height:   2500,
//	}
//
// # Source
//
// Source is the closed set of supported websites. Everything that differs
// per website is selected by switching on a Source value.
//
// # Errors
//
// ErrNetwork, ErrParse, ErrDecryption and ErrExtraction classify failures.
// Use errors.Is to test for them.
package model
