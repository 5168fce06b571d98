package collection

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/handiism/dpm-downloader/internal/model"
)

// PaintingCategory is the search category of paintings.
const PaintingCategory = 91

// Client is the subset of the HTTP client used for catalog pages.
type Client interface {
	Fetcher
	PostString(ctx context.Context, url string, header http.Header) (string, error)
}

// Catalog pages through the painting search results and reads painting pages.
type Catalog struct {
	client  Client
	baseURL string
}

// NewCatalog creates a Catalog for the site at baseURL.
func NewCatalog(client Client, baseURL string) *Catalog {
	return &Catalog{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchPage returns the paintings listed on page (1-based). An empty result
// marks the end of the list.
func (c *Catalog) FetchPage(ctx context.Context, page int) ([]model.Painting, error) {
	listURL := fmt.Sprintf("%s/searchs/paints/category_id/%d/p/%d.html", c.baseURL, PaintingCategory, page)
	body, err := c.client.PostString(ctx, listURL, nil)
	if err != nil {
		return nil, err
	}
	rows, err := ListRows(body)
	if err != nil {
		return nil, err
	}

	paintings := make([]model.Painting, 0, len(rows))
	for _, row := range rows {
		id := PaintingID(row.Href)
		if id == "" {
			continue
		}
		paintings = append(paintings, model.Painting{
			ID:       id,
			Name:     row.Name,
			Author:   row.Author,
			Dynasty:  row.Dynasty,
			Category: row.Category,
		})
	}
	return paintings, nil
}

// FetchDetail reads the page of a painting.
func (c *Catalog) FetchDetail(ctx context.Context, id string) (model.PaintingDetail, error) {
	page, err := c.client.GetString(ctx, NewExtractor(c.client, c.baseURL).PaintingURL(id))
	if err != nil {
		return model.PaintingDetail{}, err
	}
	return ParseDetail(page)
}

var minghuajiLink = regexp.MustCompile(`minghuaji\.dpm\.org\.cn/paint`)

// ParseDetail extracts the Minghua Ji cross reference, the inventory number,
// material, color and dimensions from a painting page. Fields that are not
// published stay empty.
func ParseDetail(page string) (model.PaintingDetail, error) {
	doc, err := parse(page)
	if err != nil {
		return model.PaintingDetail{}, err
	}

	var detail model.PaintingDetail
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if !minghuajiLink.MatchString(href) {
			return true
		}
		detail.MhjID = href[strings.LastIndex(href, "=")+1:]
		return false
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if !strings.Contains(text, "objno") {
			return
		}
		if m := inventoryNo.FindStringSubmatch(compact(text)); m != nil {
			detail.InventoryID = m[1]
		}
	})

	info := doc.Find(".content_edit").First()
	if info.Length() == 0 {
		return detail, nil
	}
	text := compact(info.Text())
	if m := materialRule.FindStringSubmatch(text); m != nil {
		detail.Material = m[1]
	}
	if m := colorRule.FindStringSubmatch(text); m != nil {
		detail.Color = m[1]
	}
	if m := heightRule.FindStringSubmatch(text); m != nil {
		if detail.Height, err = centimetres(m[1]); err != nil {
			return model.PaintingDetail{}, err
		}
	}
	if m := widthRule.FindStringSubmatch(text); m != nil {
		if detail.Width, err = centimetres(m[1]); err != nil {
			return model.PaintingDetail{}, err
		}
	}
	return detail, nil
}

func compact(s string) string {
	return strings.ReplaceAll(RepairMojibake(s), " ", "")
}

func centimetres(s string) (string, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
