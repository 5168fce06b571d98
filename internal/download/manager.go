package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/handiism/dpm-downloader/internal/catalog"
	"github.com/handiism/dpm-downloader/internal/collection"
	"github.com/handiism/dpm-downloader/internal/config"
	"github.com/handiism/dpm-downloader/internal/dezoom"
	"github.com/handiism/dpm-downloader/internal/dzi"
	"github.com/handiism/dpm-downloader/internal/http"
	ioutils "github.com/handiism/dpm-downloader/internal/io"
	"github.com/handiism/dpm-downloader/internal/minghuaji"
	"github.com/handiism/dpm-downloader/internal/model"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a pipeline progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Downloader turns a descriptor file into an image file.
type Downloader interface {
	Run(ctx context.Context, descriptorPath, outputPath string, onLine func(string)) error
}

// ThumbnailDir is the subdirectory of the image directory holding thumbnails.
const ThumbnailDir = "thumbnails"

// catalogSource lists paintings and reads their details.
type catalogSource interface {
	FetchPage(ctx context.Context, page int) ([]model.Painting, error)
	FetchDetail(ctx context.Context, id string) (model.PaintingDetail, error)
}

// Manager runs the catalog, descriptor and image phases for one source.
// Paintings are processed one at a time; a failing painting is reported and
// the batch continues.
type Manager struct {
	settings     *config.Settings
	source       model.Source
	httpClient   *http.Client
	downloader   Downloader
	imageService *ioutils.ImageService

	extractor    dzi.Extractor
	extractorErr error

	totalPaintings  int32
	donePaintings   int32
	failedPaintings int32

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewManager creates a new Manager.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) (*Manager, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	source, err := settings.SourceKind()
	if err != nil {
		return nil, err
	}
	return &Manager{
		settings:     settings,
		source:       source,
		httpClient:   http.NewClient(settings.ToClientOptions()...),
		downloader:   dezoom.NewRunner(settings.ToDezoomOptions()),
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
	}, nil
}

// Source returns the site the Manager works on.
func (m *Manager) Source() model.Source {
	return m.source
}

// SetDownloader replaces the tile downloader.
func (m *Manager) SetDownloader(d Downloader) {
	m.downloader = d
}

// GetProgress returns how many paintings of the current phase are done,
// how many of those failed, and the total.
func (m *Manager) GetProgress() (done, failed, total int32) {
	return atomic.LoadInt32(&m.donePaintings), atomic.LoadInt32(&m.failedPaintings),
		atomic.LoadInt32(&m.totalPaintings)
}

func (m *Manager) catalogSource() catalogSource {
	if m.source == model.SourceCollection {
		return collection.NewCatalog(m.httpClient, m.settings.CollectionBaseURL)
	}
	return minghuaji.NewCatalog(m.httpClient, m.settings.MinghuajiBaseURL)
}

// FetchCatalog pages through the painting list from startPage until an
// empty page and merges the result into the catalog file. Paintings already
// listed keep their row. Pages read before an error are still saved.
func (m *Manager) FetchCatalog(ctx context.Context, startPage int) error {
	if startPage < 1 {
		startPage = 1
	}
	cat, err := catalog.Load(m.settings.CatalogPath, m.source)
	if err != nil {
		return err
	}
	before := cat.Len()
	src := m.catalogSource()

	var fetchErr error
	for page := startPage; ; page++ {
		if err := ctx.Err(); err != nil {
			fetchErr = err
			break
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching page %d...", page), Level: LevelInfo})
		paintings, err := src.FetchPage(ctx, page)
		if err != nil {
			fetchErr = fmt.Errorf("page %d: %w", page, err)
			break
		}
		if len(paintings) == 0 {
			break
		}
		for _, p := range paintings {
			m.progress(ProgressEvent{Message: fmt.Sprintf("%s %s %s %s", p.ID, p.Name, p.Author, p.Dynasty), Level: LevelVerbose})
		}
		cat.Merge(paintings)
	}

	if err := cat.Save(m.settings.CatalogPath); err != nil {
		return err
	}
	if fetchErr != nil {
		return fetchErr
	}
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Catalog has %d paintings (%d new)", cat.Len(), cat.Len()-before),
		Level:   LevelSuccess,
	})
	return nil
}

// FetchDetails reads the detail page of every catalog painting that has no
// details yet and saves the enriched catalog.
func (m *Manager) FetchDetails(ctx context.Context) error {
	cat, err := catalog.Load(m.settings.CatalogPath, m.source)
	if err != nil {
		return err
	}
	if cat.Len() == 0 {
		return fmt.Errorf("catalog %s is empty, fetch the painting list first", m.settings.CatalogPath)
	}
	src := m.catalogSource()
	m.reset(cat.Len())

	for i, p := range cat.Paintings {
		if ctx.Err() != nil {
			break
		}
		if p.HasDetails() {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s, details present", p.ID), Level: LevelVerbose})
			m.finish(nil)
			continue
		}
		detail, err := src.FetchDetail(ctx, p.ID)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error fetching details of %s: %v", p.ID, err), Level: LevelError})
			m.finish(err)
			continue
		}
		detail.Apply(&p)
		cat.Update(p)
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Details %s (%d/%d): %s %s %sx%s", p.ID, i+1, cat.Len(), p.Material, p.Color, p.Height, p.Width),
			Level:   LevelVerbose,
		})
		m.finish(nil)
	}

	if err := cat.Save(m.settings.CatalogPath); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.summary("details")
	return nil
}

// Extractor returns the descriptor extractor of the source. For Minghua Ji
// the viewer configuration is fetched on the first call only; a failed
// fetch is remembered and returned by later calls.
func (m *Manager) Extractor(ctx context.Context) (dzi.Extractor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.extractor != nil || m.extractorErr != nil {
		return m.extractor, m.extractorErr
	}

	switch m.source {
	case model.SourceCollection:
		m.extractor = collection.NewExtractor(m.httpClient, m.settings.CollectionBaseURL)
	default:
		m.progress(ProgressEvent{Message: "Fetching viewer configuration...", Level: LevelVerbose})
		cfg, err := m.viewerConfig(ctx)
		if err != nil {
			if ctx.Err() == nil {
				m.extractorErr = err
			}
			return nil, err
		}
		m.extractor = minghuaji.NewExtractor(m.httpClient, m.settings.MinghuajiBaseURL, cfg)
	}
	return m.extractor, nil
}

func (m *Manager) viewerConfig(ctx context.Context) (minghuaji.Config, error) {
	constants, err := minghuaji.FetchConstants(ctx, m.httpClient, m.settings.MinghuajiBaseURL)
	if err != nil {
		return minghuaji.Config{}, fmt.Errorf("viewer configuration: %w", err)
	}
	cfg, err := constants.Resolve()
	if err != nil {
		return minghuaji.Config{}, fmt.Errorf("viewer configuration: %w", err)
	}
	return cfg, nil
}

// SetExtractor replaces the descriptor extractor.
func (m *Manager) SetExtractor(e dzi.Extractor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractor = e
	m.extractorErr = nil
}

// IDs returns ids unchanged if any are given, otherwise every painting of
// the catalog.
func (m *Manager) IDs(ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) > 0 {
		return out, nil
	}
	cat, err := catalog.Load(m.settings.CatalogPath, m.source)
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		return nil, fmt.Errorf("catalog %s is empty, fetch the painting list first", m.settings.CatalogPath)
	}
	return cat.IDs(), nil
}

// GenerateDescriptors writes the descriptor files of the given paintings, or
// of the whole catalog when ids is empty. With SkipExisting, paintings whose
// descriptors are present and well formed are left alone.
func (m *Manager) GenerateDescriptors(ctx context.Context, ids []string) error {
	ids, err := m.IDs(ids)
	if err != nil {
		return err
	}
	gen := m.generator()
	m.reset(len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Painting %s (%d/%d) ...", id, i+1, len(ids)), Level: LevelInfo})
		paths, err := m.descriptors(ctx, gen, id)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error generating descriptors of %s: %v", id, err), Level: LevelError})
			m.finish(err)
			continue
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Wrote %s", strings.Join(baseNames(paths), ", ")), Level: LevelVerbose})
		m.finish(nil)
	}

	m.summary("descriptors")
	return nil
}

// DownloadImages downloads the images of the given paintings, or of the
// whole catalog when ids is empty. Missing descriptors are generated first
// and images already on disk are skipped.
func (m *Manager) DownloadImages(ctx context.Context, ids []string) error {
	ids, err := m.IDs(ids)
	if err != nil {
		return err
	}
	gen := m.generator()
	if err := ioutils.EnsureDir(m.settings.ImageDir); err != nil {
		return err
	}
	m.reset(len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Painting %s (%d/%d) ...", id, i+1, len(ids)), Level: LevelInfo})
		err := m.downloadPainting(ctx, gen, id)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", id, err), Level: LevelError})
		}
		m.finish(err)
	}

	m.summary("images")
	return nil
}

// generator returns a Generator whose extractor is built on the first
// painting that actually needs extraction.
func (m *Manager) generator() *dzi.Generator {
	lazy := dzi.ExtractorFunc(func(ctx context.Context, id string) ([]model.TileDescriptor, error) {
		ext, err := m.Extractor(ctx)
		if err != nil {
			return nil, err
		}
		return ext.Extract(ctx, id)
	})
	return dzi.NewGenerator(m.settings.DescriptorDir, lazy)
}

func (m *Manager) descriptors(ctx context.Context, gen *dzi.Generator, id string) ([]string, error) {
	if !m.settings.SkipExisting {
		return gen.Regenerate(ctx, id)
	}
	paths, skipped, err := gen.Generate(ctx, id)
	if err == nil && skipped {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Descriptors of %s already exist", id), Level: LevelVerbose})
	}
	return paths, err
}

func (m *Manager) downloadPainting(ctx context.Context, gen *dzi.Generator, id string) error {
	if _, current := gen.Current(id); !current && m.settings.SkipExisting {
		if images := m.existingImages(id); len(images) > 0 {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Painting %s already exists.", id), Level: LevelInfo})
			return nil
		}
	}

	paths, err := m.descriptors(ctx, gen, id)
	if err != nil {
		return err
	}

	for _, path := range paths {
		d, err := dzi.Read(path)
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(filepath.Base(path), dzi.Extension)
		out := filepath.Join(m.settings.ImageDir, base+d.Extension())

		if ioutils.FileExists(out) {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", filepath.Base(out)), Level: LevelVerbose})
		} else {
			err := m.downloader.Run(ctx, path, out, func(line string) {
				m.progress(ProgressEvent{Message: line, Level: LevelVerbose})
			})
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if !ioutils.FileExists(out) {
				return fmt.Errorf("%s: downloader produced no image at %s", filepath.Base(path), out)
			}
			m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", filepath.Base(out)), Level: LevelSuccess})
		}

		if m.settings.CreateThumbnail {
			m.thumbnail(ctx, out, base)
		}
	}
	return nil
}

func (m *Manager) thumbnail(ctx context.Context, image, base string) {
	dir := filepath.Join(m.settings.ImageDir, ThumbnailDir)
	dst := filepath.Join(dir, base+".jpg")
	if ioutils.FileExists(dst) {
		return
	}
	if err := ioutils.EnsureDir(dir); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating thumbnail directory: %v", err), Level: LevelWarning})
		return
	}
	if err := m.imageService.WriteThumbnail(ctx, image, dst, m.settings.ThumbnailMaxSize); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating thumbnail of %s: %v", filepath.Base(image), err), Level: LevelWarning})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created thumbnail %s", filepath.Base(dst)), Level: LevelVerbose})
}

// existingImages lists image files named after the painting: {id}.{ext},
// or {id}_0.{ext} up to {id}_{n-1}.{ext} with no gaps.
func (m *Manager) existingImages(id string) []string {
	entries, err := os.ReadDir(m.settings.ImageDir)
	if err != nil {
		return nil
	}
	stem := dzi.BaseName(id, 0, 1)
	if stem == "" {
		return nil
	}
	indexed := make(map[int]string)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.EqualFold(filepath.Ext(name), dzi.Extension) {
			continue
		}
		rest := strings.TrimSuffix(name, filepath.Ext(name))
		if rest == stem {
			return []string{name}
		}
		if n, ok := imageIndex(rest, stem); ok {
			indexed[n] = name
		}
	}

	images := make([]string, 0, len(indexed))
	for i := 0; i < len(indexed); i++ {
		name, ok := indexed[i]
		if !ok {
			return nil
		}
		images = append(images, name)
	}
	return images
}

func imageIndex(name, stem string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, stem+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 || suffix != strconv.Itoa(n) {
		return 0, false
	}
	return n, true
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func (m *Manager) reset(total int) {
	atomic.StoreInt32(&m.totalPaintings, int32(total))
	atomic.StoreInt32(&m.donePaintings, 0)
	atomic.StoreInt32(&m.failedPaintings, 0)
}

func (m *Manager) finish(err error) {
	atomic.AddInt32(&m.donePaintings, 1)
	if err != nil {
		atomic.AddInt32(&m.failedPaintings, 1)
	}
}

func (m *Manager) summary(phase string) {
	done, failed, total := m.GetProgress()
	if failed == 0 {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s for %d paintings", phase, total), Level: LevelSuccess})
		return
	}
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("Finished %s, %d of %d paintings failed", phase, failed, done),
		Level:   LevelWarning,
	})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

// IsFatal reports whether err should stop a whole run rather than a single
// painting.
func IsFatal(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
