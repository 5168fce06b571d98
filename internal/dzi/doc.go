// Package dzi reads and writes Deep Zoom image descriptors and drives
// descriptor generation for one painting at a time.
//
// # Descriptor files
//
// A descriptor is a small XML document consumed by the tile downloader:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<Image xmlns="http://schemas.microsoft.com/deepzoom/2008" Url="https://host/img_files/"
//	       Overlap="1" TileSize="254" Format="jpg"><Size Width="30000" Height="2500"></Size></Image>
//
// Files are named after the painting: "{id}.xml" when the painting has a
// single image, "{id}_{n}.xml" (n zero-based, discovery order) when it is an
// album of several panels.
//
// # Generation
//
// Generator combines an Extractor with the writer. All descriptors of a
// painting are extracted before anything is written, so a failure never
// leaves a partial set behind:
//
//	gen := dzi.NewGenerator("paintings", extractor)
//	paths, skipped, err := gen.Generate(ctx, "228361")
package dzi
