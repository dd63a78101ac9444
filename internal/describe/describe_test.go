package describe

import (
	"math"
	"testing"
	"time"

	"github.com/eda-explorer/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(vs ...int64) []models.Value {
	out := make([]models.Value, len(vs))
	for i, v := range vs {
		out[i] = models.IntValue(v)
	}
	return out
}

// texts builds text cells; "<nil>" marks a missing cell.
func texts(vs ...string) []models.Value {
	out := make([]models.Value, len(vs))
	for i, v := range vs {
		if v == "<nil>" {
			out[i] = models.Missing()
			continue
		}
		out[i] = models.TextValue(v)
	}
	return out
}

func mustTable(t *testing.T, cols ...models.Column) *models.Table {
	t.Helper()
	tbl, err := models.NewTable(cols)
	require.NoError(t, err)
	return tbl
}

func sampleTable(t *testing.T) *models.Table {
	return mustTable(t,
		models.Column{Name: "n", Type: models.TypeInt64, Values: ints(1, 2, 3, 4, 5)},
		models.Column{Name: "s", Type: models.TypeObject, Values: texts("a", "b", "a", "a", "<nil>")},
		models.Column{Name: "f", Type: models.TypeFloat64, Values: []models.Value{
			models.FloatValue(0.5), models.Missing(), models.FloatValue(1.5), models.FloatValue(2.5), models.FloatValue(3.5),
		}},
	)
}

// cell returns the summary value for (label, column).
func cell(t *testing.T, res *models.ViewResult, label, column string) models.Value {
	t.Helper()
	r := indexOf(res.Index, label)
	c := indexOf(res.Columns, column)
	require.GreaterOrEqual(t, r, 0, "label %s", label)
	require.GreaterOrEqual(t, c, 0, "column %s", column)
	return res.Rows[r][c]
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

func TestDescribe_Dimensions(t *testing.T) {
	res, err := Describe(sampleTable(t), models.ViewSelection{Kind: models.ViewDimensions})
	require.NoError(t, err)
	require.NotNil(t, res.Dimensions)
	assert.Equal(t, 5, res.Dimensions.Rows)
	assert.Equal(t, 3, res.Dimensions.Columns)
}

func TestDescribe_FieldDescriptions(t *testing.T) {
	tbl := mustTable(t,
		models.Column{Name: "a", Type: models.TypeInt64, Values: ints(1)},
		models.Column{Name: "b", Type: models.TypeObject, Values: texts("x")},
		models.Column{Name: "c", Type: models.TypeFloat64, Values: []models.Value{models.FloatValue(1)}},
		models.Column{Name: "d", Type: models.TypeObject, Values: texts("y")},
		models.Column{Name: "e", Type: models.TypeBool, Values: []models.Value{models.BoolValue(true)}},
		models.Column{Name: "g", Type: models.TypeDatetime, Values: []models.Value{models.TimeValue(time.Now())}},
	)

	res, err := Describe(tbl, models.ViewSelection{Kind: models.ViewFieldDescriptions})
	require.NoError(t, err)

	assert.Equal(t, []string{LabelFieldName, LabelFieldType}, res.Columns)
	require.Len(t, res.Rows, tbl.NumCols())

	var names, types []string
	for _, row := range res.Rows {
		names = append(names, row[0].Text)
		types = append(types, row[1].Text)
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "g", "e"}, names)
	assert.Equal(t, []string{"object", "object", "int64", "float64", "datetime64[ns]", "bool"}, types)
}

func TestDescribe_SummaryNumeric(t *testing.T) {
	tbl := mustTable(t, models.Column{Name: "n", Type: models.TypeInt64, Values: ints(1, 2, 3, 4, 5)})

	res, err := Describe(tbl, models.ViewSelection{Kind: models.ViewSummaryStatistics})
	require.NoError(t, err)

	assert.Equal(t, []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}, res.Index)
	tests := []struct {
		label string
		want  float64
	}{
		{"count", 5},
		{"mean", 3},
		{"std", 1.58},
		{"min", 1},
		{"25%", 2},
		{"50%", 3},
		{"75%", 4},
		{"max", 5},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			v := cell(t, res, tt.label, "n")
			got, ok := v.Number()
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDescribe_SummaryMixed(t *testing.T) {
	res, err := Describe(sampleTable(t), models.ViewSelection{Kind: models.ViewSummaryStatistics})
	require.NoError(t, err)

	assert.Equal(t, []string{"n", "s", "f"}, res.Columns)
	assert.Equal(t,
		[]string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"},
		res.Index)

	assert.Equal(t, blank, cell(t, res, "unique", "n"))
	assert.Equal(t, blank, cell(t, res, "mean", "s"))
	assert.Equal(t, "a", cell(t, res, "top", "s").Text)
	assert.Equal(t, int64(3), cell(t, res, "freq", "s").Int)
	assert.Equal(t, int64(4), cell(t, res, "count", "s").Int)
	assert.Equal(t, int64(2), cell(t, res, "unique", "s").Int)

	count, _ := cell(t, res, "count", "f").Number()
	assert.Equal(t, 4.0, count)
	mean, _ := cell(t, res, "mean", "f").Number()
	assert.Equal(t, 2.0, mean)
	std, _ := cell(t, res, "std", "f").Number()
	assert.Equal(t, 1.29, std)
}

func TestDescribe_SummaryUndefinedIsBlank(t *testing.T) {
	tbl := mustTable(t,
		models.Column{Name: "one", Type: models.TypeInt64, Values: ints(7)},
		models.Column{Name: "none", Type: models.TypeObject, Values: texts("<nil>")},
	)

	res, err := Describe(tbl, models.ViewSelection{Kind: models.ViewSummaryStatistics})
	require.NoError(t, err)

	assert.Equal(t, blank, cell(t, res, "std", "one"))
	assert.Equal(t, blank, cell(t, res, "top", "none"))
	assert.Equal(t, blank, cell(t, res, "freq", "none"))
	assert.Equal(t, int64(0), cell(t, res, "count", "none").Int)
}

func TestDescribe_SummaryBooleanAndTemporal(t *testing.T) {
	d := func(day int) models.Value { return models.TimeValue(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)) }
	tbl := mustTable(t,
		models.Column{Name: "ok", Type: models.TypeBool, Values: []models.Value{
			models.BoolValue(false), models.BoolValue(true), models.BoolValue(true),
		}},
		models.Column{Name: "when", Type: models.TypeDatetime, Values: []models.Value{d(1), d(3), models.Missing()}},
	)

	res, err := Describe(tbl, models.ViewSelection{Kind: models.ViewSummaryStatistics})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"count", "unique", "top", "freq", "mean", "min", "25%", "50%", "75%", "max"},
		res.Index)
	assert.True(t, cell(t, res, "top", "ok").Bool)
	assert.Equal(t, int64(2), cell(t, res, "freq", "ok").Int)
	assert.Equal(t, "2024-01-02 00:00:00", cell(t, res, "mean", "when").String())
	assert.Equal(t, "2024-01-01 12:00:00", cell(t, res, "25%", "when").String())
	assert.Equal(t, int64(2), cell(t, res, "count", "when").Int)
	assert.Equal(t, blank, cell(t, res, "unique", "when"))
}

func TestDescribe_ValueCounts(t *testing.T) {
	res, err := Describe(sampleTable(t), models.ViewSelection{Kind: models.ViewValueCounts, Field: "s"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Value", "Count"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "a", res.Rows[0][0].Text)
	assert.Equal(t, int64(3), res.Rows[0][1].Int)
	assert.Equal(t, "b", res.Rows[1][0].Text)
	assert.Equal(t, int64(1), res.Rows[1][1].Int)
	assert.True(t, res.Rows[2][0].IsMissing())
	assert.Equal(t, int64(1), res.Rows[2][1].Int)
}

func TestDescribe_ValueCountsInvalidField(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"numeric column", "n"},
		{"float column", "f"},
		{"unknown column", "zzz"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Describe(sampleTable(t), models.ViewSelection{Kind: models.ViewValueCounts, Field: tt.field})
			assert.ErrorIs(t, err, ErrInvalidFieldSelection)
		})
	}
}

func TestDescribe_UnknownView(t *testing.T) {
	_, err := Describe(sampleTable(t), models.ViewSelection{Kind: "histogram"})
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestDescribe_DoesNotMutate(t *testing.T) {
	tbl := sampleTable(t)
	before := make([][]models.Value, tbl.NumRows())
	for i := range before {
		before[i] = tbl.Row(i)
	}

	for _, kind := range []models.ViewKind{models.ViewDimensions, models.ViewFieldDescriptions, models.ViewSummaryStatistics} {
		_, err := Describe(tbl, models.ViewSelection{Kind: kind})
		require.NoError(t, err)
	}
	_, err := Describe(tbl, models.ViewSelection{Kind: models.ViewValueCounts, Field: "s"})
	require.NoError(t, err)

	assert.Equal(t, []string{"n", "s", "f"}, tbl.ColumnNames())
	for i := range before {
		assert.Equal(t, before[i], tbl.Row(i))
	}
}

func TestTextFields(t *testing.T) {
	assert.Equal(t, []string{"s"}, TextFields(sampleTable(t)))
}

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(xs, 0.25))
	assert.Equal(t, 2.5, quantile(xs, 0.5))
	assert.Equal(t, 4.0, quantile(xs, 1))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.58, round2(1.5811388300841898))
	assert.Equal(t, 0.12, round2(0.125))
	assert.True(t, math.IsNaN(round2(math.NaN())))
}

func TestPreview(t *testing.T) {
	tbl := sampleTable(t)

	p := Preview(tbl, 1, 2)
	assert.Equal(t, 5, p.TotalRows)
	assert.Equal(t, []string{"n", "s", "f"}, p.Columns)
	assert.Equal(t, []models.ScalarType{models.TypeInt64, models.TypeObject, models.TypeFloat64}, p.Types)
	require.Len(t, p.Rows, 2)
	assert.Equal(t, int64(1), p.Rows[0][0].Int)

	p = Preview(tbl, 3, 2)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, int64(5), p.Rows[0][0].Int)

	p = Preview(tbl, 9, 2)
	assert.Empty(t, p.Rows)

	p = Preview(tbl, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Len(t, p.Rows, 5)
}
