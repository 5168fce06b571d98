package dzi

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	ioutils "github.com/handiism/dpm-downloader/internal/io"
)

var indexSuffix = regexp.MustCompile(`^_(\d+)$`)

// BaseName returns the file name stem for a painting's descriptor or image.
//
// total is the number of images of the painting; with a single image no
// index suffix is added.
func BaseName(id string, index, total int) string {
	id = ioutils.SanitizeFileName(id)
	if total == 1 {
		return id
	}
	return fmt.Sprintf("%s_%d", id, index)
}

// FileNames returns the descriptor file names for a painting with n images.
func FileNames(id string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = BaseName(id, i, n) + Extension
	}
	return names
}

// Existing returns the paths of the painting's descriptor set in dir.
//
// The set is either the single "{id}.xml" or the indexed files "{id}_0.xml"
// up to "{id}_{n-1}.xml" with no gaps. Indexed files that do not form such a
// set belong to other paintings (painting "12" must not claim "12_3.xml")
// and are ignored. A missing dir yields no files.
func Existing(dir, id string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	stem := ioutils.SanitizeFileName(id)
	if stem == "" {
		return nil, nil
	}

	indexed := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, Extension) {
			continue
		}
		base := strings.TrimSuffix(name, Extension)
		if base == stem {
			return []string{filepath.Join(dir, name)}, nil
		}
		if !strings.HasPrefix(base, stem) {
			continue
		}
		m := indexSuffix.FindStringSubmatch(base[len(stem):])
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || m[1] != strconv.Itoa(n) {
			continue
		}
		indexed[n] = filepath.Join(dir, name)
	}

	paths := make([]string, 0, len(indexed))
	for i := 0; i < len(indexed); i++ {
		p, ok := indexed[i]
		if !ok {
			return nil, nil
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// RemoveStale deletes the painting's descriptor set in dir, as found by
// Existing.
func RemoveStale(dir, id string) error {
	paths, err := Existing(dir, id)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
