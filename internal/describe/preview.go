package describe

import "github.com/eda-explorer/backend/internal/models"

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Preview returns page (1-based) of the table rows. Out-of-range pages are
// empty rather than an error.
func Preview(t *models.Table, page, pageSize int) *models.PreviewPage {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	total := t.NumRows()
	types := make([]models.ScalarType, t.NumCols())
	for i, c := range t.Columns {
		types[i] = c.Type
	}
	p := &models.PreviewPage{
		Page:      page,
		PageSize:  pageSize,
		TotalRows: total,
		Columns:   t.ColumnNames(),
		Types:     types,
		Rows:      [][]models.Value{},
	}

	start := (page - 1) * pageSize
	if start >= total {
		return p
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	p.Rows = make([][]models.Value, 0, end-start)
	for i := start; i < end; i++ {
		p.Rows = append(p.Rows, t.Row(i))
	}
	return p
}
