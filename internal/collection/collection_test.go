package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	dphttp "github.com/handiism/dpm-downloader/internal/http"
	"github.com/handiism/dpm-downloader/internal/model"
	"golang.org/x/text/encoding/charmap"
)

const tileGeneratorXML = `<?xml version="1.0" encoding="UTF-8"?>
<Image TileSize="510" Overlap="1" Format="jpg" xmnls="http://schemas.microsoft.com/deepzoom/2008">
<Size Width="10752" Height="4352"/>
</Image>`

const bigImagePage = `<html><head><script src="/js/openseadragon.min.js"></script></head><body>
<div id="viewer"></div>
<script>var unrelated = 1;</script>
<script>
var viewer = OpenSeadragon({
  id: "viewer",
  tileSources: {
    Image: {
      xmlns: "http://schemas.microsoft.com/deepzoom/2008",
      Url: "https://img.dpm.org.cn/tiles/big_files/",
      Overlap: "1",
      TileSize: "256",
      Format: "jpg",
      Size: { Width: "8000.5", Height: "3000" }
    }
  }
});
</script></body></html>`

func TestTileResources(t *testing.T) {
	page := `<div id="hl_content">
<img custom_tilegenerator="dyx.html?path=/tiles/a.xml">
<img custom_tilegenerator="http://img.example.org/tiles/b.xml">
<a custom_tilegenerator="dyx.html?path=/tiles/a.xml"></a>
<img custom_tilegenerator="https://www.dpm.org.cn/dyx.html?path=/tiles/c.xml">
<img custom_tilegenerator="/dyx.html?path=/tiles/a.xml">
<img custom_tilegenerator="tiles/d.xml">
<img custom_tilegenerator="  ">
<img src="c.jpg">
</div>`

	got, err := TileResources(page, "https://www.dpm.org.cn/collection/paint/1.html")
	if err != nil {
		t.Fatalf("TileResources() error = %v", err)
	}
	want := []string{
		"https://www.dpm.org.cn/tiles/a.xml",
		"http://img.example.org/tiles/b.xml",
		"https://www.dpm.org.cn/tiles/c.xml",
		"https://www.dpm.org.cn/collection/paint/tiles/d.xml",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("TileResources() = %v, want %v", got, want)
	}

	_, err = TileResources(`<img src="c.jpg">`, "https://www.dpm.org.cn/")
	if !errors.Is(err, model.ErrExtraction) {
		t.Errorf("TileResources() without images error = %v, want ErrExtraction", err)
	}
}

func TestTileBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://img.dpm.org.cn/tiles/img0001.xml", "https://img.dpm.org.cn/tiles/img0001_files/"},
		{"https://img.dpm.org.cn/a.xml/b.xml", "https://img.dpm.org.cn/a.xml/b_files/"},
		{"https://img.dpm.org.cn/tiles/img.XML", "https://img.dpm.org.cn/tiles/img_files/"},
	}
	for _, tt := range tests {
		if got := TileBaseURL(tt.in); got != tt.want {
			t.Errorf("TileBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsTileGeneratorXML(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://img.dpm.org.cn/tiles/a.xml", true},
		{"https://img.dpm.org.cn/tiles/a.XML?v=2", true},
		{"https://www.dpm.org.cn/bigimage/228361.html", false},
		{"https://www.dpm.org.cn/xml/viewer", false},
	}
	for _, tt := range tests {
		if got := IsTileGeneratorXML(tt.in); got != tt.want {
			t.Errorf("IsTileGeneratorXML(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTileGenerator(t *testing.T) {
	d, err := ParseTileGenerator(tileGeneratorXML, "http://img.dpm.org.cn/tiles/img0001.xml")
	if err != nil {
		t.Fatalf("ParseTileGenerator() error = %v", err)
	}
	want := model.TileDescriptor{
		Xmlns:    model.DeepZoomNamespace,
		URL:      "https://img.dpm.org.cn/tiles/img0001_files/",
		Overlap:  "1",
		TileSize: "510",
		Format:   "jpg",
		Width:    10752,
		Height:   4352,
	}
	if d != want {
		t.Errorf("ParseTileGenerator() = %+v, want %+v", d, want)
	}
}

func TestParseTileGenerator_Namespace(t *testing.T) {
	tests := []struct {
		name string
		root string
		want string
	}{
		{"misspelled attribute", `<Image xmnls="urn:a" xmlns="urn:b"`, "urn:a"},
		{"element namespace", `<Image xmlns="urn:b"`, "urn:b"},
		{"default", `<Image`, model.DeepZoomNamespace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.root + ` TileSize="256" Overlap="0" Format="png"><Size Width="10" Height="20"/></Image>`
			d, err := ParseTileGenerator(body, "https://img.dpm.org.cn/x.xml")
			if err != nil {
				t.Fatalf("ParseTileGenerator() error = %v", err)
			}
			if d.Xmlns != tt.want {
				t.Errorf("Xmlns = %q, want %q", d.Xmlns, tt.want)
			}
		})
	}
}

func TestParseTileGenerator_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not xml", "<html"},
		{"missing size", `<Image TileSize="256" Overlap="0" Format="jpg"></Image>`},
		{"missing format", `<Image TileSize="256" Overlap="0"><Size Width="10" Height="20"/></Image>`},
		{"zero width", `<Image TileSize="256" Overlap="0" Format="jpg"><Size Width="0" Height="20"/></Image>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTileGenerator(tt.body, "https://img.dpm.org.cn/x.xml")
			if !errors.Is(err, model.ErrExtraction) {
				t.Errorf("ParseTileGenerator() error = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestParseBigImage(t *testing.T) {
	d, err := ParseBigImage(bigImagePage)
	if err != nil {
		t.Fatalf("ParseBigImage() error = %v", err)
	}
	want := model.TileDescriptor{
		Xmlns:    model.DeepZoomNamespace,
		URL:      "https://img.dpm.org.cn/tiles/big_files/",
		Overlap:  "1",
		TileSize: "256",
		Format:   "jpg",
		Width:    8000,
		Height:   3000,
	}
	if d != want {
		t.Errorf("ParseBigImage() = %+v, want %+v", d, want)
	}
}

func TestParseBigImage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no inline script", `<script src="a.js"></script>`},
		{"no viewer marker", `<script>var x = {Url: "a", Format: "jpg"};</script>`},
		{"viewer not last", `<script>OpenSeadragon({Url: "a"})</script><script>var y;</script>`},
		{"missing fields", `<script>OpenSeadragon({Url: "https://a/", Format: "jpg"})</script>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBigImage(tt.page)
			if !errors.Is(err, model.ErrExtraction) {
				t.Errorf("ParseBigImage() error = %v, want ErrExtraction", err)
			}
		})
	}
}

func TestExtractor(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/collection/paint/228361.html", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, `<div id="hl_content">
<img custom_tilegenerator="dyx.html?path=/tiles/img0001.xml">
<img custom_tilegenerator="dyx.html?path=/tiles/img0001.xml">
<img custom_tilegenerator="/bigimage/228361.html">
</div>`)
	})
	mux.HandleFunc("/tiles/img0001.xml", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, tileGeneratorXML)
	})
	mux.HandleFunc("/bigimage/228361.html", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, bigImagePage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ext := NewExtractor(dphttp.NewClient(), srv.URL)
	got, err := ext.Extract(context.Background(), "228361")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Extract() returned %d descriptors, want 2", len(got))
	}
	wantURL := "https:" + strings.TrimPrefix(srv.URL, "http:") + "/tiles/img0001_files/"
	if got[0].URL != wantURL || got[0].Width != 10752 {
		t.Errorf("descriptor 0 = %+v, want Url %q", got[0], wantURL)
	}
	if got[1].URL != "https://img.dpm.org.cn/tiles/big_files/" || got[1].TileSize != "256" {
		t.Errorf("descriptor 1 = %+v", got[1])
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("server saw %d requests, want 3", n)
	}
}

func TestExtractor_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/collection/paint/1.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>no image</p>`)
	})
	mux.HandleFunc("/collection/paint/2.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<img custom_tilegenerator="/missing.xml">`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ext := NewExtractor(dphttp.NewClient(), srv.URL)
	if _, err := ext.Extract(context.Background(), "1"); !errors.Is(err, model.ErrExtraction) {
		t.Errorf("Extract(1) error = %v, want ErrExtraction", err)
	}
	if _, err := ext.Extract(context.Background(), "2"); !errors.Is(err, model.ErrNetwork) {
		t.Errorf("Extract(2) error = %v, want ErrNetwork", err)
	}
	if _, err := ext.Extract(context.Background(), "3"); !errors.Is(err, model.ErrNetwork) {
		t.Errorf("Extract(3) error = %v, want ErrNetwork", err)
	}
}

func TestCatalog_FetchPage(t *testing.T) {
	var method string
	mux := http.NewServeMux()
	mux.HandleFunc("/searchs/paints/category_id/91/p/1.html", func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		fmt.Fprint(w, `<table class="table1">
<tr><th>名称</th><th>时代</th><th>类别</th><th>作者</th></tr>
<tr><td><a href="/collection/paint/228361.html">清明上河图</a></td><td>宋</td><td>绘画</td><td>张择端</td></tr>
<tr><td>no link</td><td>明</td><td>绘画</td><td>佚名</td></tr>
<tr><td><a href="https://www.dpm.org.cn/collection/paint/231234.html"> 秋山图 </a></td><td>清</td><td>绘画</td><td>王翚</td></tr>
</table>`)
	})
	mux.HandleFunc("/searchs/paints/category_id/91/p/2.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<table class="table1"><tr><th>名称</th></tr></table>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewCatalog(dphttp.NewClient(), srv.URL)
	got, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage(1) error = %v", err)
	}
	want := []model.Painting{
		{ID: "228361", Name: "清明上河图", Author: "张择端", Dynasty: "宋", Category: "绘画"},
		{ID: "231234", Name: "秋山图", Author: "王翚", Dynasty: "清", Category: "绘画"},
	}
	if len(got) != len(want) {
		t.Fatalf("FetchPage(1) = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("painting %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if method != http.MethodPost {
		t.Errorf("method = %s, want POST", method)
	}

	got, err = c.FetchPage(context.Background(), 2)
	if err != nil || len(got) != 0 {
		t.Errorf("FetchPage(2) = %v, %v, want empty", got, err)
	}
}

func TestPaintingID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/collection/paint/228361.html", "228361"},
		{"https://www.dpm.org.cn/collection/paint/228361.html?x=1", "228361"},
		{"/collection/paint/228361", "228361"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PaintingID(tt.in); got != tt.want {
			t.Errorf("PaintingID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

const detailPage = `<html><body>
<a href="/">home</a>
<a href="https://minghuaji.dpm.org.cn/paint/appreciate?id=abc123">名画记</a>
<script>var objno="新00012345";</script>
<div class="content_edit"><p>此图绢本，设色，纵 24.8 厘米，横 1,191.5 厘米。</p></div>
</body></html>`

func TestParseDetail(t *testing.T) {
	got, err := ParseDetail(detailPage)
	if err != nil {
		t.Fatalf("ParseDetail() error = %v", err)
	}
	want := model.PaintingDetail{
		MhjID:       "abc123",
		InventoryID: "新00012345",
		Material:    "绢本",
		Color:       "设色",
		Height:      "24.8",
		Width:       "1191.5",
	}
	if got != want {
		t.Errorf("ParseDetail() = %+v, want %+v", got, want)
	}
}

func TestParseDetail_Mojibake(t *testing.T) {
	garbled, err := charmap.ISO8859_1.NewDecoder().String(detailPage)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := ParseDetail(garbled)
	if err != nil {
		t.Fatalf("ParseDetail() error = %v", err)
	}
	if got.InventoryID != "新00012345" || got.Material != "绢本" || got.Width != "1191.5" {
		t.Errorf("ParseDetail() = %+v", got)
	}
}

func TestParseDetail_Partial(t *testing.T) {
	got, err := ParseDetail(`<div class="content_edit">纸本，水墨。</div>`)
	if err != nil {
		t.Fatalf("ParseDetail() error = %v", err)
	}
	want := model.PaintingDetail{Material: "纸本", Color: "水墨"}
	if got != want {
		t.Errorf("ParseDetail() = %+v, want %+v", got, want)
	}
}

func TestRepairMojibake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "plain", "plain"},
		{"already utf8", "绢本", "绢本"},
		{"latin1 decoded", "ç»¢æ\u009c¬", "绢本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepairMojibake(tt.in); got != tt.want {
				t.Errorf("RepairMojibake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
