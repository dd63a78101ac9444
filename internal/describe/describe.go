// Package describe derives the descriptive views of a loaded table. Every
// function here is pure: the table is read, never modified.
package describe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/eda-explorer/backend/internal/models"
)

var (
	// ErrInvalidFieldSelection is returned when value counts are asked for a
	// field that does not exist or is not a text column.
	ErrInvalidFieldSelection = errors.New("invalid field selection")

	// ErrUnknownView is returned for a view kind the engine does not know.
	ErrUnknownView = errors.New("unknown view")
)

// Column labels of the tabular views.
const (
	LabelFieldName = "Field Name"
	LabelFieldType = "Field Type"
	LabelValue     = "Value"
	LabelCount     = "Count"
)

// Describe computes the selected view of t.
func Describe(t *models.Table, sel models.ViewSelection) (*models.ViewResult, error) {
	switch sel.Kind {
	case models.ViewDimensions:
		return dimensions(t), nil
	case models.ViewFieldDescriptions:
		return fieldDescriptions(t), nil
	case models.ViewSummaryStatistics:
		return summaryStatistics(t), nil
	case models.ViewValueCounts:
		return valueCounts(t, sel.Field)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownView, sel.Kind)
}

func dimensions(t *models.Table) *models.ViewResult {
	return &models.ViewResult{
		Kind:       models.ViewDimensions,
		Dimensions: &models.Dimensions{Rows: t.NumRows(), Columns: t.NumCols()},
	}
}

// fieldDescriptions lists (name, type) pairs ordered by type name
// descending; columns of the same type keep table order.
func fieldDescriptions(t *models.Table) *models.ViewResult {
	rows := make([][]models.Value, t.NumCols())
	for i, c := range t.Columns {
		rows[i] = []models.Value{models.TextValue(c.Name), models.TextValue(string(c.Type))}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][1].Text > rows[j][1].Text
	})
	return &models.ViewResult{
		Kind:    models.ViewFieldDescriptions,
		Columns: []string{LabelFieldName, LabelFieldType},
		Rows:    rows,
	}
}

// TextFields returns the names of the object columns, the only valid
// targets for value counts.
func TextFields(t *models.Table) []string {
	names := make([]string, 0, t.NumCols())
	for _, c := range t.Columns {
		if c.Type == models.TypeObject {
			names = append(names, c.Name)
		}
	}
	return names
}
