package models

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileKind is the declared format of an uploaded file.
type FileKind string

const (
	FileKindExcel FileKind = "excel"
	FileKindCSV   FileKind = "csv"
)

// MaxHeaderRow bounds the header row a user may pick.
const MaxHeaderRow = 100

// ParseFileKind accepts the kind names shown in the UI ("Excel", "csv").
func ParseFileKind(s string) (FileKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excel", "xlsx":
		return FileKindExcel, nil
	case "csv":
		return FileKindCSV, nil
	}
	return "", fmt.Errorf("unknown file kind %q", s)
}

// GuessFileKind picks a kind from a file name; unknown extensions map to CSV.
func GuessFileKind(name string) FileKind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return FileKindExcel
	}
	return FileKindCSV
}

// LoadHints disambiguate how raw bytes become a Table.
type LoadHints struct {
	Kind      FileKind `json:"kind" yaml:"kind"`
	SheetName string   `json:"sheet,omitempty" yaml:"sheet,omitempty"`
	HeaderRow int      `json:"headerRow" yaml:"header_row"`
}

// Normalize drops the fields that do not apply to the kind.
func (h LoadHints) Normalize() LoadHints {
	if h.Kind == FileKindCSV {
		return LoadHints{Kind: FileKindCSV}
	}
	return h
}

// Validate checks the hints independent of file content.
func (h LoadHints) Validate() error {
	switch h.Kind {
	case FileKindCSV, FileKindExcel:
	default:
		return fmt.Errorf("unknown file kind %q", h.Kind)
	}
	if h.Kind == FileKindExcel && (h.HeaderRow < 0 || h.HeaderRow > MaxHeaderRow) {
		return fmt.Errorf("header row must be between 0 and %d, got %d", MaxHeaderRow, h.HeaderRow)
	}
	return nil
}
