// Package parsers provides parsers for importing listings from various formats.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// RawListing represents a listing parsed from an external source before validation.
type RawListing struct {
	Kind              string   `json:"kind"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Tags              []string `json:"tags,omitempty"`
	Capabilities      []string `json:"capabilities,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	Links             []string `json:"links,omitempty"`
	InteractionType   string   `json:"interaction_type,omitempty"`
	TimeZone          string   `json:"time_zone,omitempty"`
	TimePreference    string   `json:"time_preference,omitempty"`
	ContactPreference string   `json:"contact_preference,omitempty"`
	LineNum           int      `json:"-"` // Line number in source file (set by parser)
}

// Parser defines the interface for parsing listings from various formats.
type Parser interface {
	Parse(r io.Reader) ([]RawListing, error)
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv".
func ForFormat(format string) Parser {
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{}
	case "csv":
		return &CSVParser{}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return &JSONParser{}
	case ".csv":
		return &CSVParser{}
	default:
		return nil
	}
}
