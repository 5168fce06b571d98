// Package config provides configuration management for dpm-downloader.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Conversion to the option types of the http and dezoom packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Catalog in paintings.csv
//	// Descriptors and images in paintings/
//	// Largest resolution, 10 tile retries
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Saving Settings
//
//	settings.ImageDir = "/data/paintings"
//	err := settings.Save("/path/to/config.json")
//
// # Configuration Options
//
// Settings includes options for:
//   - Source site and catalog file
//   - Descriptor and image directories
//   - Tile downloader executable, retries and resolution
//   - HTTP user agent, referer and timeout
//   - Thumbnail generation
package config
