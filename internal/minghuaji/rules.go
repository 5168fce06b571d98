package minghuaji

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/handiism/dpm-downloader/internal/model"
)

// Each rule below isolates one assumption about the site's markup so that an
// upstream change only breaks one function.

var (
	quotedConstant = regexp.MustCompile(`"(.*?)"`)
	initPayload    = regexp.MustCompile(`gv\.init\("(.*?)"`)
	decimalNumber  = regexp.MustCompile(`[\d.,]+`)
)

// QuotedConstants returns every double quoted string in script, in order.
func QuotedConstants(script string) []string {
	matches := quotedConstant.FindAllStringSubmatch(script, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// Payload returns the encrypted argument of the first gv.init call in page.
func Payload(page string) (string, error) {
	m := initPayload.FindStringSubmatch(page)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%w: cannot find gv.init payload", model.ErrExtraction)
	}
	return m[1], nil
}

// PanelValues returns the value attribute of every li element carrying one,
// in document order. Album pages list one entry per panel; single paintings
// have none.
func PanelValues(page string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParse, err)
	}

	var values []string
	seen := make(map[string]struct{})
	doc.Find("li[value]").Each(func(_ int, s *goquery.Selection) {
		v := strings.TrimSpace(s.AttrOr("value", ""))
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		values = append(values, v)
	})
	return values, nil
}

// ListEntries parses a painting list page. Each painting is an li element
// wrapping an .img_box carrying tagid, tagname, tagauthor and tagdynasty.
func ListEntries(page string) ([]model.Painting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParse, err)
	}

	var paintings []model.Painting
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		box := li.Find(".img_box").First()
		if box.Length() == 0 {
			return
		}
		id := strings.TrimSpace(box.AttrOr("tagid", ""))
		if id == "" {
			return
		}
		paintings = append(paintings, model.Painting{
			ID:      id,
			Name:    strings.TrimSpace(box.AttrOr("tagname", "")),
			Author:  strings.TrimSpace(box.AttrOr("tagauthor", "")),
			Dynasty: strings.TrimSpace(box.AttrOr("tagdynasty", "")),
		})
	})
	return paintings, nil
}

// DetailHeading returns the comma separated description heading of a detail
// page, for example "清，王翚，绢本，设色，纵24.8厘米，横528.7厘米".
func DetailHeading(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	h3 := doc.Find(".pf_main h3").First()
	if h3.Length() == 0 {
		return "", fmt.Errorf("%w: cannot find .pf_main h3", model.ErrParse)
	}
	return h3.Text(), nil
}
