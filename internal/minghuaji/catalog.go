package minghuaji

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/handiism/dpm-downloader/internal/model"
)

// XSRFCookie is the cookie holding the token required by the list endpoint.
const XSRFCookie = "XSRF-TOKEN"

// Client is the subset of the HTTP client used for catalog pages.
type Client interface {
	Fetcher
	PostString(ctx context.Context, url string, header http.Header) (string, error)
	Cookie(ctx context.Context, url, name string) (string, error)
}

// Catalog pages through the painting list and reads detail pages.
type Catalog struct {
	client  Client
	baseURL string
	token   string
}

// NewCatalog creates a Catalog for the site at baseURL.
func NewCatalog(client Client, baseURL string) *Catalog {
	return &Catalog{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchPage returns the paintings listed on page (1-based). An empty result
// marks the end of the list.
//
// The XSRF token is requested on first use and reused for later pages.
func (c *Catalog) FetchPage(ctx context.Context, page int) ([]model.Painting, error) {
	if c.token == "" {
		token, err := c.client.Cookie(ctx, c.baseURL+"/paint/list", XSRFCookie)
		if err != nil {
			return nil, err
		}
		c.token = token
	}

	header := http.Header{}
	header.Set("Connection", "keep-alive")
	header.Set("Cookie", XSRFCookie+"="+c.token)
	header.Set("X-XSRF-TOKEN", c.token)

	listURL := fmt.Sprintf("%s/paint/queryList?page=%d&showType=0", c.baseURL, page)
	body, err := c.client.PostString(ctx, listURL, header)
	if err != nil {
		return nil, err
	}
	return ListEntries(body)
}

// FetchDetail reads the detail page of a painting.
func (c *Catalog) FetchDetail(ctx context.Context, id string) (model.PaintingDetail, error) {
	page, err := c.client.GetString(ctx, c.baseURL+"/paint/detail?id="+url.QueryEscape(id))
	if err != nil {
		return model.PaintingDetail{}, err
	}
	return ParseDetail(page)
}

// ParseDetail extracts material, color and dimensions from a detail page.
//
// The heading lists dynasty and author first, then optional material and
// color parts, then the height ("纵...") and width ("横...") in centimetres.
// A color may itself contain a comma, as in "设色，描金".
func ParseDetail(page string) (model.PaintingDetail, error) {
	heading, err := DetailHeading(page)
	if err != nil {
		return model.PaintingDetail{}, err
	}

	var parts []string
	for _, p := range strings.Split(heading, "，") {
		parts = append(parts, strings.TrimSpace(p))
	}

	heightAt := -1
	for i := 2; i+1 < len(parts); i++ {
		if strings.HasPrefix(parts[i], "纵") {
			heightAt = i
			break
		}
	}
	if heightAt < 0 {
		return model.PaintingDetail{}, fmt.Errorf("%w: cannot find height in %q", model.ErrParse, heading)
	}
	if !strings.HasPrefix(parts[heightAt+1], "横") {
		return model.PaintingDetail{}, fmt.Errorf("%w: cannot find width in %q", model.ErrParse, heading)
	}

	var detail model.PaintingDetail
	if heightAt > 2 {
		detail.Material = parts[2]
	}
	if heightAt > 3 {
		detail.Color = strings.Join(parts[3:heightAt], "，")
	}
	if detail.Height, err = Centimetres(parts[heightAt]); err != nil {
		return model.PaintingDetail{}, err
	}
	if detail.Width, err = Centimetres(parts[heightAt+1]); err != nil {
		return model.PaintingDetail{}, err
	}
	return detail, nil
}

// Centimetres extracts the first decimal number of s, dropping thousands
// separators: "横1,191.5厘米" yields "1191.5".
func Centimetres(s string) (string, error) {
	m := decimalNumber.FindString(s)
	if m == "" {
		return "", fmt.Errorf("%w: no number in %q", model.ErrParse, s)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
