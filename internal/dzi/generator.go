package dzi

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/handiism/dpm-downloader/internal/model"
)

// Extractor derives the tile descriptors of a painting from its source site.
//
// Implementations return one descriptor per image, in discovery order, and
// an error wrapping one of the model error sentinels on failure.
type Extractor interface {
	Extract(ctx context.Context, paintingID string) ([]model.TileDescriptor, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, paintingID string) ([]model.TileDescriptor, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, paintingID string) ([]model.TileDescriptor, error) {
	return f(ctx, paintingID)
}

// Generator writes the descriptor files of paintings into one directory.
type Generator struct {
	dir       string
	extractor Extractor
}

// NewGenerator creates a Generator writing into dir.
func NewGenerator(dir string, extractor Extractor) *Generator {
	return &Generator{dir: dir, extractor: extractor}
}

// Dir returns the output directory.
func (g *Generator) Dir() string {
	return g.dir
}

// Current returns the painting's descriptor files if they all exist and parse.
func (g *Generator) Current(id string) ([]string, bool) {
	paths, err := Existing(g.dir, id)
	if err != nil || len(paths) == 0 {
		return nil, false
	}
	for _, p := range paths {
		if _, err := Read(p); err != nil {
			return nil, false
		}
	}
	return paths, true
}

// Generate makes sure the painting's descriptor files exist.
//
// If well-formed descriptors are already present they are returned with
// skipped set and no extraction happens. Otherwise all descriptors are
// extracted first; only then are stale files removed and the new set
// written, so the directory never holds a mix of old and new files. On
// extraction failure stale files are removed as well and the error is
// returned, leaving a clean slate for the next run.
func (g *Generator) Generate(ctx context.Context, id string) (paths []string, skipped bool, err error) {
	if paths, ok := g.Current(id); ok {
		return paths, true, nil
	}
	paths, err = g.Regenerate(ctx, id)
	return paths, false, err
}

// Regenerate extracts and writes the painting's descriptors unconditionally,
// replacing any previous set.
func (g *Generator) Regenerate(ctx context.Context, id string) ([]string, error) {
	if BaseName(id, 0, 1) == "" {
		return nil, fmt.Errorf("painting %q: %w: id yields no file name", id, model.ErrExtraction)
	}

	descriptors, err := g.extract(ctx, id)
	if err != nil {
		if rmErr := RemoveStale(g.dir, id); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return nil, fmt.Errorf("painting %s: %w", id, err)
	}

	if err := RemoveStale(g.dir, id); err != nil {
		return nil, fmt.Errorf("painting %s: %w", id, err)
	}

	names := FileNames(id, len(descriptors))
	paths := make([]string, len(names))
	for i, d := range descriptors {
		if err := Write(g.dir, names[i], d); err != nil {
			RemoveStale(g.dir, id)
			return nil, fmt.Errorf("painting %s: %w", id, err)
		}
		paths[i] = filepath.Join(g.dir, names[i])
	}
	return paths, nil
}

func (g *Generator) extract(ctx context.Context, id string) ([]model.TileDescriptor, error) {
	descriptors, err := g.extractor.Extract(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: no images found", model.ErrExtraction)
	}
	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}
	return descriptors, nil
}
