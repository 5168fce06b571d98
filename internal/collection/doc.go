// Package collection scrapes the Palace Museum collection site (www.dpm.org.cn).
//
// Painting pages reference their zoomable images through a
// custom_tilegenerator attribute. Two conventions exist:
//
//   - Tile generator XML (".../img0001.xml"): a Deep Zoom descriptor published
//     by the image host. Tiles live next to it in ".../img0001_files/".
//   - Big image pages: an HTML viewer whose trailing inline script calls
//     OpenSeadragon with the descriptor fields as key: "value" pairs.
//
// Both produce the same model.TileDescriptor:
//
//	ext := collection.NewExtractor(client, collection.DefaultBaseURL)
//	descriptors, err := ext.Extract(ctx, "228361")
package collection
