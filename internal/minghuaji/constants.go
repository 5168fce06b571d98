package minghuaji

import (
	"context"
	"fmt"

	"github.com/handiism/dpm-downloader/internal/crypto"
	"github.com/handiism/dpm-downloader/internal/model"
)

// MinConstants is the number of quoted constants the viewer script must hold.
const MinConstants = 30

// Positions of the meaningful constants in the viewer script.
const (
	keyIndex       = 1
	ivIndex        = 4
	namespaceIndex = 28
	overlapIndex   = 29
)

// Fetcher retrieves text resources.
type Fetcher interface {
	GetString(ctx context.Context, url string) (string, error)
}

// Constants is the ordered list of quoted strings found in the viewer script.
type Constants []string

// ParseConstants extracts the quoted strings of script.
//
// Returns an error wrapping model.ErrParse when fewer than MinConstants are found.
func ParseConstants(script string) (Constants, error) {
	consts := Constants(QuotedConstants(script))
	if len(consts) < MinConstants {
		return nil, fmt.Errorf("%w: viewer script holds %d constants, need %d", model.ErrParse, len(consts), MinConstants)
	}
	return consts, nil
}

// FetchConstants downloads the viewer script below baseURL and parses it.
//
// The result stays valid for a whole run; fetch it once and pass it along.
func FetchConstants(ctx context.Context, client Fetcher, baseURL string) (Constants, error) {
	url := baseURL + "/js/gve.js"
	script, err := client.GetString(ctx, url)
	if err != nil {
		return nil, err
	}
	consts, err := ParseConstants(script)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return consts, nil
}

// Config is the decoded form of Constants.
type Config struct {
	Key       []byte
	IV        []byte
	Namespace string
	Overlap   string
}

// Resolve hex-unescapes the key, IV, namespace and overlap constants.
func (c Constants) Resolve() (Config, error) {
	if len(c) < MinConstants {
		return Config{}, fmt.Errorf("%w: %d constants, need %d", model.ErrParse, len(c), MinConstants)
	}

	var cfg Config
	var err error
	if cfg.Key, err = crypto.UnescapeHex(c[keyIndex]); err != nil {
		return Config{}, fmt.Errorf("key constant: %w", err)
	}
	if cfg.IV, err = crypto.UnescapeHex(c[ivIndex]); err != nil {
		return Config{}, fmt.Errorf("iv constant: %w", err)
	}
	ns, err := crypto.UnescapeHex(c[namespaceIndex])
	if err != nil {
		return Config{}, fmt.Errorf("namespace constant: %w", err)
	}
	overlap, err := crypto.UnescapeHex(c[overlapIndex])
	if err != nil {
		return Config{}, fmt.Errorf("overlap constant: %w", err)
	}
	cfg.Namespace = string(ns)
	cfg.Overlap = string(overlap)
	return cfg, nil
}
