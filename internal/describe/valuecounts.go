package describe

import (
	"fmt"

	"github.com/eda-explorer/backend/internal/models"
)

// valueCounts tallies the distinct values of a text column, missing
// included, most frequent first.
func valueCounts(t *models.Table, field string) (*models.ViewResult, error) {
	col, ok := t.Column(field)
	if !ok {
		return nil, fmt.Errorf("%w: no field named %q", ErrInvalidFieldSelection, field)
	}
	if col.Type != models.TypeObject {
		return nil, fmt.Errorf("%w: field %q has type %s, value counts need a text field", ErrInvalidFieldSelection, field, col.Type)
	}

	groups := groupValues(col.Values, true)
	byCountDesc(groups)

	rows := make([][]models.Value, len(groups))
	for i, g := range groups {
		rows[i] = []models.Value{g.value, models.IntValue(int64(g.count))}
	}
	return &models.ViewResult{
		Kind:    models.ViewValueCounts,
		Columns: []string{LabelValue, LabelCount},
		Rows:    rows,
	}, nil
}
