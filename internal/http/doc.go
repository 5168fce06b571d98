// Package http provides the HTTP client shared by all scrapers.
//
// The Client in this package handles:
//   - User-Agent and default headers (Referer) for the museum sites
//   - Timeout handling
//   - Status checking: any non-2xx answer becomes an error wrapping model.ErrNetwork
//   - Cookie retrieval for the XSRF token handshake
//   - POST requests with extra headers
//
// # Basic Usage
//
//	client := http.NewClient(http.WithReferer("https://www.dpm.org.cn"))
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://www.dpm.org.cn/collection/paint/228361.html")
//
//	// Read a cookie set by a page
//	token, err := client.Cookie(ctx, "https://minghuaji.dpm.org.cn/paint/list", "XSRF-TOKEN")
package http
