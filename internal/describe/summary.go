package describe

import (
	"math"
	"sort"
	"time"

	"github.com/eda-explorer/backend/internal/models"
)

// partial is the summary of one column: its statistic labels in order and
// the value under each label.
type partial struct {
	labels []string
	values map[string]models.Value
}

func newPartial(n int) partial {
	return partial{labels: make([]string, 0, n), values: make(map[string]models.Value, n)}
}

func (p *partial) set(label string, v models.Value) {
	p.labels = append(p.labels, label)
	p.values[label] = v
}

// number stores a rounded statistic; NaN becomes missing.
func number(x float64) models.Value {
	return models.FloatValue(round2(x))
}

// summarizer computes the partial summary of one column family.
type summarizer func(col *models.Column) partial

var summarizers = map[models.Family]summarizer{
	models.FamilyNumeric:  numericSummary,
	models.FamilyText:     categoricalSummary,
	models.FamilyBoolean:  categoricalSummary,
	models.FamilyTemporal: temporalSummary,
}

func numericSummary(col *models.Column) partial {
	xs := numbers(col)
	sorted := sortedCopy(xs)

	p := newPartial(8)
	p.set("count", number(float64(len(xs))))
	p.set("mean", number(mean(xs)))
	p.set("std", number(sampleStd(xs)))
	if len(sorted) == 0 {
		p.set("min", models.Missing())
	} else {
		p.set("min", number(sorted[0]))
	}
	for _, q := range quartiles {
		p.set(q.label, number(quantile(sorted, q.p)))
	}
	if len(sorted) == 0 {
		p.set("max", models.Missing())
	} else {
		p.set("max", number(sorted[len(sorted)-1]))
	}
	return p
}

func categoricalSummary(col *models.Column) partial {
	groups := groupValues(col.Values, false)
	count := 0
	for _, g := range groups {
		count += g.count
	}

	p := newPartial(4)
	p.set("count", models.IntValue(int64(count)))
	p.set("unique", models.IntValue(int64(len(groups))))
	if len(groups) == 0 {
		p.set("top", models.Missing())
		p.set("freq", models.Missing())
		return p
	}
	top := groups[0]
	for _, g := range groups[1:] {
		if g.count > top.count {
			top = g
		}
	}
	p.set("top", top.value)
	p.set("freq", models.IntValue(int64(top.count)))
	return p
}

func temporalSummary(col *models.Column) partial {
	times := make([]time.Time, 0, len(col.Values))
	for _, v := range col.Values {
		if v.Kind == models.KindTime {
			times = append(times, v.Time)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	p := newPartial(7)
	p.set("count", models.IntValue(int64(len(times))))
	if len(times) == 0 {
		for _, label := range []string{"mean", "min", "25%", "50%", "75%", "max"} {
			p.set(label, models.Missing())
		}
		return p
	}

	// Offsets from the earliest timestamp keep the float arithmetic exact
	// enough at nanosecond resolution.
	base := times[0]
	offsets := make([]float64, len(times))
	for i, t := range times {
		offsets[i] = float64(t.Sub(base))
	}
	at := func(off float64) models.Value {
		return models.TimeValue(base.Add(time.Duration(math.Round(off))))
	}

	p.set("mean", at(mean(offsets)))
	p.set("min", models.TimeValue(times[0]))
	for _, q := range quartiles {
		p.set(q.label, at(quantile(offsets, q.p)))
	}
	p.set("max", models.TimeValue(times[len(times)-1]))
	return p
}

// blank fills statistics that do not apply to a column.
var blank = models.TextValue("")

// summaryStatistics merges the per-column partials into one table with a
// row per statistic. Label lists are taken shortest first and unioned in
// order of appearance.
func summaryStatistics(t *models.Table) *models.ViewResult {
	parts := make([]partial, t.NumCols())
	for i := range t.Columns {
		col := &t.Columns[i]
		parts[i] = summarizers[col.Type.Family()](col)
	}

	order := make([]int, len(parts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(parts[order[a]].labels) < len(parts[order[b]].labels)
	})

	var index []string
	seen := make(map[string]bool)
	for _, i := range order {
		for _, label := range parts[i].labels {
			if !seen[label] {
				seen[label] = true
				index = append(index, label)
			}
		}
	}

	rows := make([][]models.Value, len(index))
	for r, label := range index {
		row := make([]models.Value, len(parts))
		for c, p := range parts {
			v, ok := p.values[label]
			if !ok || v.IsMissing() {
				v = blank
			}
			row[c] = v
		}
		rows[r] = row
	}

	return &models.ViewResult{
		Kind:    models.ViewSummaryStatistics,
		Index:   index,
		Columns: t.ColumnNames(),
		Rows:    rows,
	}
}
