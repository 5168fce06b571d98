package model

import (
	"fmt"
	"strings"
)

// Source identifies one of the supported museum websites.
type Source int

const (
	// SourceMinghuaji is the Minghua Ji site (minghuaji.dpm.org.cn). Its
	// image configuration is embedded as an AES encrypted payload.
	SourceMinghuaji Source = iota

	// SourceCollection is the main collection site (www.dpm.org.cn). Its
	// images are described by tile generator XML or an inline viewer script.
	SourceCollection
)

// Sources returns all supported sources in declaration order.
func Sources() []Source {
	return []Source{SourceMinghuaji, SourceCollection}
}

// String returns the short name used on the command line and in settings.
func (s Source) String() string {
	switch s {
	case SourceMinghuaji:
		return "mhj"
	case SourceCollection:
		return "collection"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ParseSource converts a short name ("mhj" or "collection") into a Source.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mhj", "minghuaji":
		return SourceMinghuaji, nil
	case "collection":
		return SourceCollection, nil
	}
	return 0, fmt.Errorf("unknown website %q", name)
}
