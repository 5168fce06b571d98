package collection

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/handiism/dpm-downloader/internal/model"
	"golang.org/x/text/encoding/charmap"
)

// TileGeneratorAttr is the attribute pointing at an image's tile resource.
const TileGeneratorAttr = "custom_tilegenerator"

// viewerPrefix is the HTML viewer wrapped around tile generator paths.
const viewerPrefix = "dyx.html?path=/"

// ViewerMarker identifies the viewer initialization script of big image pages.
const ViewerMarker = "OpenSeadragon"

var (
	keyValue      = regexp.MustCompile(`(\w+)\s*:\s*"([^"]*)"`)
	inventoryNo   = regexp.MustCompile(`objno="([^"]+?)"`)
	materialRule  = regexp.MustCompile(`(绢本|纸本|金笺)[，。]`)
	colorRule     = regexp.MustCompile(`[，。](设色|淡设色|水墨|墨笔)[，。]`)
	heightRule    = regexp.MustCompile(`[，。]纵([\d.,]+)厘米`)
	widthRule     = regexp.MustCompile(`[，。]横([\d.,]+)厘米`)
	paintingIDRef = regexp.MustCompile(`([^/]+?)(\.[a-z]+)?$`)
)

func parse(page string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	return doc, nil
}

// TileResources returns the distinct tile resource URLs referenced by page,
// in discovery order, resolved against pageURL. Several elements may point
// at the same resource.
func TileResources(page, pageURL string) ([]string, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var resources []string
	seen := make(map[string]struct{})
	doc.Find("[" + TileGeneratorAttr + "]").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr(TileGeneratorAttr, ""))
		ref, err := url.Parse(stripViewer(raw))
		if err != nil || ref.String() == "" {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		resources = append(resources, resolved)
	})

	if len(resources) == 0 {
		return nil, fmt.Errorf("%w: no %s image found", model.ErrExtraction, TileGeneratorAttr)
	}
	return resources, nil
}

// stripViewer removes the viewer page prefix from a tile generator
// attribute. The path after the prefix is rooted at the site, also when the
// viewer page itself is referenced relatively.
func stripViewer(raw string) string {
	stripped := strings.Replace(raw, viewerPrefix, "", 1)
	if stripped == raw || stripped == "" || strings.HasPrefix(stripped, "/") {
		return stripped
	}
	if u, err := url.Parse(raw); err == nil && !u.IsAbs() && u.Host == "" {
		return "/" + stripped
	}
	return stripped
}

// IsTileGeneratorXML reports whether resource follows the standard tile
// generator naming convention.
func IsTileGeneratorXML(resource string) bool {
	u, err := url.Parse(resource)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".xml")
}

// TileBaseURL derives the tile directory of a tile generator resource:
// "http://host/a/img.xml" becomes "https://host/a/img_files/".
func TileBaseURL(resource string) string {
	if strings.HasPrefix(resource, "http:") {
		resource = "https:" + strings.TrimPrefix(resource, "http:")
	}
	if i := strings.LastIndex(strings.ToLower(resource), ".xml"); i >= 0 {
		resource = resource[:i] + "_files/" + resource[i+len(".xml"):]
	}
	return resource
}

// TrailingScript returns the text of the last inline script of page.
func TrailingScript(page string) (string, error) {
	doc, err := parse(page)
	if err != nil {
		return "", err
	}
	var script string
	found := false
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		script = s.Text()
		found = true
	})
	if !found {
		return "", fmt.Errorf("%w: page has no inline script", model.ErrExtraction)
	}
	return script, nil
}

// ScriptFields collects key: "value" pairs of script. Keys are lower cased;
// the first occurrence of a key wins.
func ScriptFields(script string) map[string]string {
	fields := make(map[string]string)
	for _, m := range keyValue.FindAllStringSubmatch(script, -1) {
		key := strings.ToLower(m[1])
		if _, ok := fields[key]; !ok {
			fields[key] = m[2]
		}
	}
	return fields
}

// RepairMojibake undoes UTF-8 text that was decoded as Latin-1 upstream.
// Text that is not such mojibake is returned unchanged.
func RepairMojibake(s string) string {
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil || raw == s || !utf8.ValidString(raw) {
		return s
	}
	return raw
}

// ListRow is one row of the search result table.
type ListRow struct {
	Href     string
	Name     string
	Dynasty  string
	Category string
	Author   string
}

// ListRows parses the .table1 search result table, skipping the header row
// and rows without a painting link.
func ListRows(page string) ([]ListRow, error) {
	doc, err := parse(page)
	if err != nil {
		return nil, err
	}
	table := doc.Find(".table1").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: cannot find result table", model.ErrParse)
	}

	var rows []ListRow
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cell := func(n int) *goquery.Selection {
			return tr.Find(fmt.Sprintf("td:nth-child(%d)", n)).First()
		}
		href := strings.TrimSpace(cell(1).Find("a").First().AttrOr("href", ""))
		if href == "" {
			return
		}
		rows = append(rows, ListRow{
			Href:     href,
			Name:     strings.TrimSpace(cell(1).Text()),
			Dynasty:  strings.TrimSpace(cell(2).Text()),
			Category: strings.TrimSpace(cell(3).Text()),
			Author:   strings.TrimSpace(cell(4).Text()),
		})
	})
	return rows, nil
}

// PaintingID returns the id encoded in a painting link such as
// "/collection/paint/228361.html".
func PaintingID(href string) string {
	if u, err := url.Parse(href); err == nil {
		href = u.Path
	}
	m := paintingIDRef.FindStringSubmatch(strings.TrimRight(href, "/"))
	if m == nil {
		return ""
	}
	return m[1]
}
