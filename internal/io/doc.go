// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writing (temp file + rename)
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation and existence checks
//   - Thumbnail generation for downloaded paintings
//
// # File Operations
//
//	// Write data so readers never observe a partial file
//	err := ioutils.WriteFileAtomic("/out/228361.xml", data)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/path/to/new/directory")
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from filenames:
//
//	safe := ioutils.SanitizeFileName("清明上河图: 卷/1") // Returns "清明上河图_ 卷_1"
//
// # Image Processing
//
// The ImageService creates small previews of stitched paintings:
//
//	svc := ioutils.NewImageService()
//	err := svc.WriteThumbnail(ctx, "/out/228361.jpg", "/out/228361_thumb.jpg", 800)
package ioutils
