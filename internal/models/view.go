package models

import "fmt"

// ViewKind names one of the derived summaries of a table.
type ViewKind string

const (
	ViewDimensions        ViewKind = "dimensions"
	ViewFieldDescriptions ViewKind = "field-descriptions"
	ViewSummaryStatistics ViewKind = "summary-statistics"
	ViewValueCounts       ViewKind = "value-counts"
)

// ParseViewKind validates a view name.
func ParseViewKind(s string) (ViewKind, error) {
	switch k := ViewKind(s); k {
	case ViewDimensions, ViewFieldDescriptions, ViewSummaryStatistics, ViewValueCounts:
		return k, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// ViewSelection is the user's choice of summary. Field is only used by
// value counts.
type ViewSelection struct {
	Kind  ViewKind `json:"kind"`
	Field string   `json:"field,omitempty"`
}

// Dimensions is the (rows, columns) shape of a table.
type Dimensions struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// ViewResult is either a shape or a renderable table.
type ViewResult struct {
	Kind       ViewKind    `json:"kind"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Index      []string    `json:"index,omitempty"`
	Columns    []string    `json:"columns,omitempty"`
	Rows       [][]Value   `json:"-"`
}

// Records returns the rows as plain Go values for JSON/YAML encoding.
func (r *ViewResult) Records() [][]any {
	return records(r.Rows)
}

func records(rows [][]Value) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		rec := make([]any, len(row))
		for j, v := range row {
			rec[j] = v.Interface()
		}
		out[i] = rec
	}
	return out
}

// Payload is the encodable form of a ViewResult.
func (r *ViewResult) Payload() map[string]any {
	p := map[string]any{"kind": r.Kind}
	if r.Dimensions != nil {
		p["dimensions"] = r.Dimensions
		return p
	}
	if len(r.Index) > 0 {
		p["index"] = r.Index
	}
	p["columns"] = r.Columns
	p["rows"] = r.Records()
	return p
}

// PreviewPage is one page of table rows. Page is 1-based.
type PreviewPage struct {
	Page      int          `json:"page" msgpack:"page"`
	PageSize  int          `json:"pageSize" msgpack:"pageSize"`
	TotalRows int          `json:"totalRows" msgpack:"totalRows"`
	Columns   []string     `json:"columns" msgpack:"columns"`
	Types     []ScalarType `json:"types" msgpack:"types"`
	Rows      [][]Value    `json:"-" msgpack:"-"`
}

// Payload is the encodable form of a PreviewPage.
func (p *PreviewPage) Payload() map[string]any {
	return map[string]any{
		"page":      p.Page,
		"pageSize":  p.PageSize,
		"totalRows": p.TotalRows,
		"columns":   p.Columns,
		"types":     p.Types,
		"rows":      records(p.Rows),
	}
}
