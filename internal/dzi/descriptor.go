package dzi

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	ioutils "github.com/handiism/dpm-downloader/internal/io"
	"github.com/handiism/dpm-downloader/internal/model"
)

// Extension is the file extension of descriptor files.
const Extension = ".xml"

type imageElement struct {
	XMLName  xml.Name    `xml:"Image"`
	Xmlns    string      `xml:"xmlns,attr,omitempty"`
	URL      string      `xml:"Url,attr"`
	Overlap  string      `xml:"Overlap,attr"`
	TileSize string      `xml:"TileSize,attr"`
	Format   string      `xml:"Format,attr"`
	Size     sizeElement `xml:"Size"`
}

type sizeElement struct {
	Width  int `xml:"Width,attr"`
	Height int `xml:"Height,attr"`
}

// Marshal serializes a descriptor into a UTF-8 XML document with declaration.
func Marshal(d model.TileDescriptor) ([]byte, error) {
	body, err := xml.Marshal(imageElement{
		Xmlns:    d.Xmlns,
		URL:      d.URL,
		Overlap:  d.Overlap,
		TileSize: d.TileSize,
		Format:   d.Format,
		Size:     sizeElement{Width: d.Width, Height: d.Height},
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// Unmarshal parses a descriptor document.
func Unmarshal(data []byte) (model.TileDescriptor, error) {
	var img imageElement
	if err := xml.Unmarshal(data, &img); err != nil {
		return model.TileDescriptor{}, fmt.Errorf("%w: %v", model.ErrParse, err)
	}
	return model.TileDescriptor{
		Xmlns:    img.Xmlns,
		URL:      img.URL,
		Overlap:  img.Overlap,
		TileSize: img.TileSize,
		Format:   img.Format,
		Width:    img.Size.Width,
		Height:   img.Size.Height,
	}, nil
}

// Write serializes d into dir/name, creating dir if needed and replacing any
// existing file.
//
// The writer does not validate d; extractors guarantee the invariants.
func Write(dir, name string, d model.TileDescriptor) error {
	if err := ioutils.EnsureDir(dir); err != nil {
		return err
	}
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	return ioutils.WriteFileAtomic(filepath.Join(dir, name), data)
}

// Read parses the descriptor file at path.
func Read(path string) (model.TileDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.TileDescriptor{}, err
	}
	return Unmarshal(data)
}
