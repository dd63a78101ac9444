// Package loader turns uploaded bytes into tables.
package loader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/eda-explorer/backend/internal/models"
)

// ErrUnreadableFile is returned when content cannot be parsed as the
// declared kind: corrupt workbook, malformed delimited text, unknown sheet,
// header row out of range.
var ErrUnreadableFile = errors.New("unreadable file")

func unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreadableFile, fmt.Sprintf(format, args...))
}

// Loader parses one file kind.
type Loader interface {
	// Kind returns the file kind handled by the loader.
	Kind() models.FileKind
	// Load parses data into a Table using the hints.
	Load(data []byte, hints models.LoadHints) (*models.Table, error)
}

// SheetLister is implemented by loaders whose files contain several sheets.
type SheetLister interface {
	Sheets(data []byte) ([]string, error)
}

// Registry maps file kinds to loaders.
type Registry struct {
	loaders map[models.FileKind]Loader
}

// NewRegistry returns a registry with the CSV and Excel loaders.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[models.FileKind]Loader)}
	r.Register(NewCSVLoader())
	r.Register(NewExcelLoader())
	return r
}

// Register adds or replaces the loader for its kind.
func (r *Registry) Register(l Loader) {
	r.loaders[l.Kind()] = l
}

// Kinds lists the registered kinds.
func (r *Registry) Kinds() []models.FileKind {
	kinds := make([]models.FileKind, 0, len(r.loaders))
	for k := range r.loaders {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (r *Registry) unsupported(kind models.FileKind) error {
	return unreadable("no loader registered for kind %q (supported: %v)", kind, r.Kinds())
}

// Load dispatches to the loader for hints.Kind.
func (r *Registry) Load(data []byte, hints models.LoadHints) (*models.Table, error) {
	if err := hints.Validate(); err != nil {
		return nil, unreadable("%v", err)
	}
	l, ok := r.loaders[hints.Kind]
	if !ok {
		return nil, r.unsupported(hints.Kind)
	}
	return l.Load(data, hints.Normalize())
}

// Sheets enumerates the sheets of a multi-sheet file. Single-table kinds
// return nil.
func (r *Registry) Sheets(data []byte, kind models.FileKind) ([]string, error) {
	l, ok := r.loaders[kind]
	if !ok {
		return nil, r.unsupported(kind)
	}
	sl, ok := l.(SheetLister)
	if !ok {
		return nil, nil
	}
	return sl.Sheets(data)
}
