package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/dpm-downloader/internal/collection"
	"github.com/handiism/dpm-downloader/internal/dezoom"
	"github.com/handiism/dpm-downloader/internal/http"
	"github.com/handiism/dpm-downloader/internal/minghuaji"
	"github.com/handiism/dpm-downloader/internal/model"
)

// Settings holds all configuration options.
type Settings struct {
	// Source settings
	Source            string `json:"source"` // mhj, collection
	MinghuajiBaseURL  string `json:"minghuaji_base_url"`
	CollectionBaseURL string `json:"collection_base_url"`

	// File locations
	CatalogPath   string `json:"catalog_path"`
	DescriptorDir string `json:"descriptor_dir"`
	ImageDir      string `json:"image_dir"`

	// Tile downloader settings
	DezoomifyPath   string `json:"dezoomify_path"`
	DownloadRetries int    `json:"download_retries"`
	DownloadLargest bool   `json:"download_largest"`
	SkipExisting    bool   `json:"skip_existing"`

	// HTTP settings
	UserAgent      string  `json:"user_agent"`
	Referer        string  `json:"referer"`
	RequestTimeout float64 `json:"request_timeout"` // seconds

	// Thumbnail settings
	CreateThumbnail  bool `json:"create_thumbnail"`
	ThumbnailMaxSize int  `json:"thumbnail_max_size"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Source:            model.SourceMinghuaji.String(),
		MinghuajiBaseURL:  minghuaji.DefaultBaseURL,
		CollectionBaseURL: collection.DefaultBaseURL,

		CatalogPath:   "paintings.csv",
		DescriptorDir: "paintings",
		ImageDir:      "paintings",

		DezoomifyPath:   dezoom.DefaultExecutable,
		DownloadRetries: 10,
		DownloadLargest: true,
		SkipExisting:    true,

		UserAgent:      http.DefaultUserAgent,
		Referer:        dezoom.DefaultReferer,
		RequestTimeout: 60,

		CreateThumbnail:  false,
		ThumbnailMaxSize: 1000,
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting that cannot be used.
func (s *Settings) Validate() error {
	if _, err := model.ParseSource(s.Source); err != nil {
		return err
	}
	switch {
	case s.CatalogPath == "":
		return fmt.Errorf("catalog_path must not be empty")
	case s.DescriptorDir == "":
		return fmt.Errorf("descriptor_dir must not be empty")
	case s.ImageDir == "":
		return fmt.Errorf("image_dir must not be empty")
	case s.DownloadRetries < 0:
		return fmt.Errorf("download_retries must not be negative, got %d", s.DownloadRetries)
	case s.RequestTimeout < 0:
		return fmt.Errorf("request_timeout must not be negative, got %v", s.RequestTimeout)
	case s.CreateThumbnail && s.ThumbnailMaxSize <= 0:
		return fmt.Errorf("thumbnail_max_size must be positive, got %d", s.ThumbnailMaxSize)
	}
	return nil
}

// SourceKind returns the configured source.
func (s *Settings) SourceKind() (model.Source, error) {
	return model.ParseSource(s.Source)
}

// Timeout returns the HTTP request timeout. Zero disables it.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout * float64(time.Second))
}

// ToClientOptions converts settings to HTTP client options.
func (s *Settings) ToClientOptions() []http.Option {
	opts := []http.Option{http.WithTimeout(s.Timeout())}
	if s.UserAgent != "" {
		opts = append(opts, http.WithUserAgent(s.UserAgent))
	}
	if s.Referer != "" {
		opts = append(opts, http.WithReferer(s.Referer))
	}
	return opts
}

// ToDezoomOptions converts settings to tile downloader options.
func (s *Settings) ToDezoomOptions() dezoom.Options {
	return dezoom.Options{
		Executable: s.DezoomifyPath,
		Referer:    s.Referer,
		Retries:    s.DownloadRetries,
		Largest:    s.DownloadLargest,
	}
}
