// Package minghuaji scrapes the Minghua Ji painting site (minghuaji.dpm.org.cn).
//
// The site protects its tile server location: every viewer page embeds a
// payload such as
//
//	gv.init("q2V0...==", ...)
//
// which is AES-CBC encrypted with a key and IV published, hex escaped, in
// the viewer script /js/gve.js. The same script carries the Deep Zoom XML
// namespace and the tile overlap.
//
// # Configuration constants
//
// Fetch the script once per run and resolve it into a Config:
//
//	consts, err := minghuaji.FetchConstants(ctx, client, minghuaji.DefaultBaseURL)
//	cfg, err := consts.Resolve()
//
// # Descriptor extraction
//
//	ext := minghuaji.NewExtractor(client, minghuaji.DefaultBaseURL, cfg)
//	descriptors, err := ext.Extract(ctx, "1234")
//
// # Catalog
//
// Catalog pages the painting list (POST with an XSRF token taken from a
// cookie) and parses painting detail pages.
package minghuaji
