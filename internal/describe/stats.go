package describe

import (
	"math"
	"sort"
	"strconv"

	"github.com/eda-explorer/backend/internal/models"
)

// quartiles are the percentiles reported by the summary.
var quartiles = []struct {
	label string
	p     float64
}{
	{"25%", 0.25},
	{"50%", 0.50},
	{"75%", 0.75},
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd uses n-1 in the denominator; undefined below two values.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// round2 rounds half to even at two decimals.
func round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return math.RoundToEven(x*100) / 100
}

func numbers(col *models.Column) []float64 {
	xs := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Number(); ok {
			xs = append(xs, f)
		}
	}
	return xs
}

func sortedCopy(xs []float64) []float64 {
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	return s
}

// valueKey identifies equal cells for grouping.
type valueKey struct {
	kind models.ValueKind
	s    string
}

func keyOf(v models.Value) valueKey {
	if v.Kind == models.KindTime {
		return valueKey{kind: v.Kind, s: strconv.FormatInt(v.Time.UnixNano(), 10)}
	}
	return valueKey{kind: v.Kind, s: v.String()}
}

// group is one distinct value with its count.
type group struct {
	value models.Value
	count int
}

// groupValues counts distinct values in order of first appearance. Missing
// cells form their own group only when withMissing is set.
func groupValues(values []models.Value, withMissing bool) []group {
	index := make(map[valueKey]int)
	groups := make([]group, 0)
	for _, v := range values {
		if v.IsMissing() && !withMissing {
			continue
		}
		k := keyOf(v)
		if i, ok := index[k]; ok {
			groups[i].count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, group{value: v, count: 1})
	}
	return groups
}

// byCountDesc orders groups by count, ties by first appearance.
func byCountDesc(groups []group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})
}
