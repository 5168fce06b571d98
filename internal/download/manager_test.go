package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/handiism/dpm-downloader/internal/catalog"
	"github.com/handiism/dpm-downloader/internal/config"
	"github.com/handiism/dpm-downloader/internal/dzi"
	"github.com/handiism/dpm-downloader/internal/model"
)

func testSettings(t *testing.T, source model.Source, baseURL string) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.DefaultSettings()
	s.Source = source.String()
	s.MinghuajiBaseURL = baseURL
	s.CollectionBaseURL = baseURL
	s.CatalogPath = filepath.Join(dir, "paintings.csv")
	s.DescriptorDir = filepath.Join(dir, "dzi")
	s.ImageDir = filepath.Join(dir, "images")
	return s
}

type recorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *recorder) record(e ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) has(level ProgressLevel, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func newManager(t *testing.T, s *config.Settings) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m, err := NewManager(s, rec.record)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, rec
}

func listPage(ids ...string) string {
	var sb strings.Builder
	sb.WriteString(`<table class="table1"><tr><th>名称</th><th>时代</th><th>类别</th><th>作者</th></tr>`)
	for _, id := range ids {
		fmt.Fprintf(&sb, `<tr><td><a href="/collection/paint/%s.html">画%s</a></td><td>清</td><td>绘画</td><td>佚名</td></tr>`, id, id)
	}
	sb.WriteString(`</table>`)
	return sb.String()
}

func TestNewManager_InvalidSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.Source = "louvre"
	if _, err := NewManager(s, nil); err == nil {
		t.Error("NewManager() error = nil, want unknown source")
	}
}

func TestFetchCatalog(t *testing.T) {
	pages := map[string]string{
		"1": listPage("10", "11"),
		"2": listPage("11", "12"),
		"3": listPage(),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := strings.TrimSuffix(filepath.Base(r.URL.Path), ".html")
		fmt.Fprint(w, pages[page])
	}))
	defer srv.Close()

	s := testSettings(t, model.SourceCollection, srv.URL)
	m, rec := newManager(t, s)
	if err := m.FetchCatalog(context.Background(), 1); err != nil {
		t.Fatalf("FetchCatalog() error = %v", err)
	}

	cat, err := catalog.Load(s.CatalogPath, model.SourceCollection)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(cat.IDs(), ","); got != "10,11,12" {
		t.Errorf("catalog ids = %s, want 10,11,12", got)
	}
	if !rec.has(LevelSuccess, "3 paintings (3 new)") {
		t.Errorf("missing success event, got %+v", rec.events)
	}

	if err := m.FetchCatalog(context.Background(), 2); err != nil {
		t.Fatalf("second FetchCatalog() error = %v", err)
	}
	if !rec.has(LevelSuccess, "3 paintings (0 new)") {
		t.Errorf("rerun should add nothing, got %+v", rec.events)
	}
}

func TestFetchCatalog_ErrorKeepsPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/p/2.html") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, listPage("1"))
	}))
	defer srv.Close()

	s := testSettings(t, model.SourceCollection, srv.URL)
	m, _ := newManager(t, s)
	err := m.FetchCatalog(context.Background(), 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("FetchCatalog() error = %v, want ErrNetwork", err)
	}
	cat, _ := catalog.Load(s.CatalogPath, model.SourceCollection)
	if cat.Len() != 1 {
		t.Errorf("catalog has %d paintings, want page 1 saved", cat.Len())
	}
}

func TestFetchDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collection/paint/1.html" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<script>objno="故00001"</script><div class="content_edit">绢本，设色，纵10厘米，横20厘米。</div>`)
	}))
	defer srv.Close()

	s := testSettings(t, model.SourceCollection, srv.URL)
	cat := catalog.New(model.SourceCollection)
	cat.Merge([]model.Painting{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}})
	if err := cat.Save(s.CatalogPath); err != nil {
		t.Fatal(err)
	}

	m, rec := newManager(t, s)
	if err := m.FetchDetails(context.Background()); err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}

	cat, _ = catalog.Load(s.CatalogPath, model.SourceCollection)
	p, _ := cat.Get("1")
	if p.InventoryID != "故00001" || p.Material != "绢本" || p.Height != "10" || p.Width != "20" {
		t.Errorf("painting 1 = %+v", p)
	}
	if done, failed, total := m.GetProgress(); done != 2 || failed != 1 || total != 2 {
		t.Errorf("GetProgress() = %d, %d, %d, want 2, 1, 2", done, failed, total)
	}
	if !rec.has(LevelError, "details of 2") {
		t.Errorf("missing error event for painting 2, got %+v", rec.events)
	}
}

func TestFetchDetails_EmptyCatalog(t *testing.T) {
	m, _ := newManager(t, testSettings(t, model.SourceCollection, "http://127.0.0.1:0"))
	if err := m.FetchDetails(context.Background()); err == nil {
		t.Error("FetchDetails() error = nil, want empty catalog error")
	}
}

func descriptor(format string) model.TileDescriptor {
	return model.TileDescriptor{
		Xmlns:    model.DeepZoomNamespace,
		URL:      "https://img.dpm.org.cn/tiles/x_files/",
		Overlap:  "1",
		TileSize: "256",
		Format:   format,
		Width:    400,
		Height:   200,
	}
}

func fakeExtractor(calls *[]string) dzi.Extractor {
	return dzi.ExtractorFunc(func(ctx context.Context, id string) ([]model.TileDescriptor, error) {
		*calls = append(*calls, id)
		switch id {
		case "album":
			return []model.TileDescriptor{descriptor("png"), descriptor("png")}, nil
		case "broken":
			return nil, fmt.Errorf("%w: no marker", model.ErrExtraction)
		default:
			return []model.TileDescriptor{descriptor("png")}, nil
		}
	})
}

func TestGenerateDescriptors(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	m, rec := newManager(t, s)
	var calls []string
	m.SetExtractor(fakeExtractor(&calls))

	if err := m.GenerateDescriptors(context.Background(), []string{"single", "broken", "album"}); err != nil {
		t.Fatalf("GenerateDescriptors() error = %v", err)
	}
	for _, name := range []string{"single.xml", "album_0.xml", "album_1.xml"} {
		if _, err := os.Stat(filepath.Join(s.DescriptorDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if !rec.has(LevelError, "broken") {
		t.Errorf("missing error event for broken, got %+v", rec.events)
	}
	if !rec.has(LevelWarning, "1 of 3") {
		t.Errorf("missing summary warning, got %+v", rec.events)
	}

	calls = nil
	if err := m.GenerateDescriptors(context.Background(), []string{"single", "album"}); err != nil {
		t.Fatalf("second GenerateDescriptors() error = %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("existing descriptors re-extracted: %v", calls)
	}

	s.SkipExisting = false
	if err := m.GenerateDescriptors(context.Background(), []string{"single"}); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Errorf("SkipExisting=false extractions = %v, want [single]", calls)
	}
}

func countingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGenerateDescriptors_ConfigurationFailure(t *testing.T) {
	srv, hits := countingServer(t)

	m, rec := newManager(t, testSettings(t, model.SourceMinghuaji, srv.URL))
	if err := m.GenerateDescriptors(context.Background(), []string{"abc", "def"}); err != nil {
		t.Fatalf("GenerateDescriptors() error = %v", err)
	}
	if !rec.has(LevelError, "viewer configuration") {
		t.Errorf("missing configuration error event, got %+v", rec.events)
	}
	if _, failed, _ := m.GetProgress(); failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("configuration fetched %d times, want 1", got)
	}
}

func TestExistingDescriptorsNeedNoNetwork(t *testing.T) {
	srv, hits := countingServer(t)
	s := testSettings(t, model.SourceMinghuaji, srv.URL)
	if err := dzi.Write(s.DescriptorDir, "abc.xml", descriptor("png")); err != nil {
		t.Fatal(err)
	}

	m, rec := newManager(t, s)
	if err := m.GenerateDescriptors(context.Background(), []string{"abc"}); err != nil {
		t.Fatalf("GenerateDescriptors() error = %v", err)
	}
	if rec.has(LevelError, "") {
		t.Errorf("unexpected error event, got %+v", rec.events)
	}

	dl := &fakeDownloader{}
	m.SetDownloader(dl)
	if err := m.DownloadImages(context.Background(), []string{"abc"}); err != nil {
		t.Fatalf("DownloadImages() error = %v", err)
	}
	if got := strings.Join(dl.calls, ","); got != "abc.xml" {
		t.Errorf("downloader calls = %s", got)
	}
	if got := hits.Load(); got != 0 {
		t.Errorf("server hit %d times, want 0", got)
	}
}

type fakeDownloader struct {
	calls []string
	fail  bool
}

func (f *fakeDownloader) Run(ctx context.Context, descriptorPath, outputPath string, onLine func(string)) error {
	f.calls = append(f.calls, filepath.Base(descriptorPath))
	if f.fail {
		return errors.New("exit status 1")
	}
	onLine("downloading tiles")
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))); err != nil {
		return err
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0644)
}

func TestDownloadImages(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	s.CreateThumbnail = true
	s.ThumbnailMaxSize = 10
	m, rec := newManager(t, s)
	var extracted []string
	m.SetExtractor(fakeExtractor(&extracted))
	dl := &fakeDownloader{}
	m.SetDownloader(dl)

	if err := m.DownloadImages(context.Background(), []string{"single", "album"}); err != nil {
		t.Fatalf("DownloadImages() error = %v", err)
	}
	if got := strings.Join(dl.calls, ","); got != "single.xml,album_0.xml,album_1.xml" {
		t.Errorf("downloader calls = %s", got)
	}
	for _, name := range []string{"single.png", "album_0.png", "album_1.png", "thumbnails/single.jpg"} {
		if _, err := os.Stat(filepath.Join(s.ImageDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if !rec.has(LevelVerbose, "downloading tiles") {
		t.Error("downloader output not forwarded")
	}

	dl.calls = nil
	if err := m.DownloadImages(context.Background(), []string{"single", "album"}); err != nil {
		t.Fatal(err)
	}
	if len(dl.calls) != 0 {
		t.Errorf("existing images downloaded again: %v", dl.calls)
	}
}

func TestDownloadImages_ExistingImageWithoutDescriptor(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	m, rec := newManager(t, s)
	var extracted []string
	m.SetExtractor(fakeExtractor(&extracted))
	dl := &fakeDownloader{}
	m.SetDownloader(dl)

	if err := os.MkdirAll(s.ImageDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.ImageDir, "old.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := m.DownloadImages(context.Background(), []string{"old"}); err != nil {
		t.Fatal(err)
	}
	if len(extracted) != 0 || len(dl.calls) != 0 {
		t.Errorf("extracted %v, downloaded %v, want nothing", extracted, dl.calls)
	}
	if !rec.has(LevelInfo, "already exists") {
		t.Errorf("missing skip event, got %+v", rec.events)
	}
}

func TestDownloadImages_Failures(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	m, rec := newManager(t, s)
	var extracted []string
	m.SetExtractor(fakeExtractor(&extracted))
	m.SetDownloader(&fakeDownloader{fail: true})

	if err := m.DownloadImages(context.Background(), []string{"broken", "single"}); err != nil {
		t.Fatalf("DownloadImages() error = %v", err)
	}
	if done, failed, _ := m.GetProgress(); done != 2 || failed != 2 {
		t.Errorf("GetProgress() done=%d failed=%d, want 2, 2", done, failed)
	}
	if !rec.has(LevelError, "broken") || !rec.has(LevelError, "single") {
		t.Errorf("missing error events, got %+v", rec.events)
	}
}

func TestDownloadImages_Cancelled(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	m, _ := newManager(t, s)
	var extracted []string
	m.SetExtractor(fakeExtractor(&extracted))
	m.SetDownloader(&fakeDownloader{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.DownloadImages(ctx, []string{"single"})
	if !IsFatal(err) {
		t.Errorf("DownloadImages() error = %v, want context cancellation", err)
	}
	if len(extracted) != 0 {
		t.Errorf("extracted %v after cancellation", extracted)
	}
}

func TestIDs(t *testing.T) {
	s := testSettings(t, model.SourceMinghuaji, "http://127.0.0.1:0")
	m, _ := newManager(t, s)

	if _, err := m.IDs(nil); err == nil {
		t.Error("IDs(nil) with empty catalog error = nil")
	}
	got, err := m.IDs([]string{" a ", "", "b"})
	if err != nil || strings.Join(got, ",") != "a,b" {
		t.Errorf("IDs() = %v, %v, want [a b]", got, err)
	}

	cat := catalog.New(model.SourceMinghuaji)
	cat.Merge([]model.Painting{{ID: "x"}, {ID: "y"}})
	if err := cat.Save(s.CatalogPath); err != nil {
		t.Fatal(err)
	}
	got, err = m.IDs(nil)
	if err != nil || strings.Join(got, ",") != "x,y" {
		t.Errorf("IDs(nil) = %v, %v, want [x y]", got, err)
	}
}

func TestDownloadImages_IndexLikeImageBelongsToOtherPainting(t *testing.T) {
	s := testSettings(t, model.SourceCollection, "http://127.0.0.1:0")
	m, _ := newManager(t, s)
	var extracted []string
	m.SetExtractor(fakeExtractor(&extracted))
	dl := &fakeDownloader{}
	m.SetDownloader(dl)

	if err := os.MkdirAll(s.ImageDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.ImageDir, "12_3.png"), []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := m.DownloadImages(context.Background(), []string{"12"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(extracted, ",") != "12" || strings.Join(dl.calls, ",") != "12.xml" {
		t.Errorf("extracted %v, downloaded %v, want painting 12 processed", extracted, dl.calls)
	}
}
