package minghuaji

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/handiism/dpm-downloader/internal/crypto"
	"github.com/handiism/dpm-downloader/internal/model"
)

// DefaultBaseURL is the Minghua Ji site root.
const DefaultBaseURL = "https://minghuaji.dpm.org.cn"

// Decrypted payload layout: url^format^width^height^tilesize.
const (
	fieldURL = iota
	fieldFormat
	fieldWidth
	fieldHeight
	fieldTileSize
	fieldCount
)

// Extractor builds tile descriptors from encrypted viewer pages.
type Extractor struct {
	client  Fetcher
	baseURL string
	config  Config
}

// NewExtractor creates an Extractor. cfg comes from Constants.Resolve and is
// shared read-only by every extraction.
func NewExtractor(client Fetcher, baseURL string, cfg Config) *Extractor {
	return &Extractor{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  cfg,
	}
}

// AppreciateURL returns the viewer page of a painting or panel.
func (e *Extractor) AppreciateURL(id string) string {
	return e.baseURL + "/paint/appreciate?id=" + url.QueryEscape(id)
}

// Extract returns one descriptor per panel of the painting.
//
// The viewer page lists album panels as li entries whose value is the
// panel's own id; each panel has its own viewer page and payload. A page
// without panels carries the payload itself.
func (e *Extractor) Extract(ctx context.Context, paintingID string) ([]model.TileDescriptor, error) {
	page, err := e.client.GetString(ctx, e.AppreciateURL(paintingID))
	if err != nil {
		return nil, err
	}

	panels, err := PanelValues(page)
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		d, err := e.descriptorFromPage(page)
		if err != nil {
			return nil, err
		}
		return []model.TileDescriptor{d}, nil
	}

	descriptors := make([]model.TileDescriptor, 0, len(panels))
	for i, panel := range panels {
		panelPage := page
		if panel != paintingID {
			panelPage, err = e.client.GetString(ctx, e.AppreciateURL(panel))
			if err != nil {
				return nil, fmt.Errorf("panel %d (%s): %w", i, panel, err)
			}
		}
		d, err := e.descriptorFromPage(panelPage)
		if err != nil {
			return nil, fmt.Errorf("panel %d (%s): %w", i, panel, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func (e *Extractor) descriptorFromPage(page string) (model.TileDescriptor, error) {
	payload, err := Payload(page)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	fields, err := crypto.Decrypt(payload, e.config.Key, e.config.IV)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	return NewDescriptor(fields, e.config)
}

// NewDescriptor builds a descriptor from decrypted payload fields.
//
// Width and height are published as floating point strings and truncated.
func NewDescriptor(fields []string, cfg Config) (model.TileDescriptor, error) {
	if len(fields) != fieldCount {
		return model.TileDescriptor{}, fmt.Errorf("%w: decrypted payload has %d fields, want %d", model.ErrExtraction, len(fields), fieldCount)
	}

	width, err := truncate(fields[fieldWidth])
	if err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: width: %v", model.ErrExtraction, err)
	}
	height, err := truncate(fields[fieldHeight])
	if err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: height: %v", model.ErrExtraction, err)
	}

	return model.TileDescriptor{
		Xmlns:    cfg.Namespace,
		URL:      fields[fieldURL],
		Overlap:  cfg.Overlap,
		TileSize: fields[fieldTileSize],
		Format:   fields[fieldFormat],
		Width:    width,
		Height:   height,
	}, nil
}

func truncate(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 0, fmt.Errorf("invalid dimension %q", s)
	}
	return int(math.Trunc(f)), nil
}
