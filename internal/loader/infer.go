package loader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eda-explorer/backend/internal/models"
)

// naValues are the tokens read as missing in delimited text.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var (
	trueValues  = map[string]struct{}{"True": {}, "TRUE": {}, "true": {}}
	falseValues = map[string]struct{}{"False": {}, "FALSE": {}, "false": {}}
)

// IsMissingToken reports whether a raw text cell means "no value".
func IsMissingToken(s string) bool {
	_, ok := naValues[s]
	return ok
}

// InferCell guesses the scalar of a raw text cell. Text that looks like a
// date stays text: delimited files carry no type information for dates.
func InferCell(raw string) models.Value {
	if IsMissingToken(raw) {
		return models.Missing()
	}
	s := strings.TrimSpace(raw)
	if IsMissingToken(s) {
		return models.Missing()
	}
	if _, ok := trueValues[s]; ok {
		return models.BoolValue(true)
	}
	if _, ok := falseValues[s]; ok {
		return models.BoolValue(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.IntValue(i)
	}
	if looksNumeric(s) {
		// Out of range literals overflow to +/-Inf rather than falling back
		// to text.
		f, err := strconv.ParseFloat(s, 64)
		if err == nil || errors.Is(err, strconv.ErrRange) {
			return models.FloatValue(f)
		}
	}
	return models.TextValue(raw)
}

// looksNumeric rejects the hex and underscore forms strconv accepts but a
// spreadsheet user would not call a number.
func looksNumeric(s string) bool {
	if strings.ContainsAny(s, "_xXpP") {
		return false
	}
	return true
}

// cell pairs the inferred scalar with the raw text it came from. raw is
// empty for cells that arrived typed (workbooks).
type cell struct {
	val    models.Value
	raw    string
	hasRaw bool
}

// columnBuilder accumulates cells and settles the column type once all rows
// are seen.
type columnBuilder struct {
	name  string
	cells []cell

	nMissing, nInt, nFloat, nBool, nTime, nText int
}

func newColumnBuilder(name string, capacity int) *columnBuilder {
	return &columnBuilder{name: name, cells: make([]cell, 0, capacity)}
}

func (b *columnBuilder) add(c cell) {
	switch c.val.Kind {
	case models.KindMissing:
		b.nMissing++
	case models.KindInt:
		b.nInt++
	case models.KindFloat:
		b.nFloat++
	case models.KindBool:
		b.nBool++
	case models.KindTime:
		b.nTime++
	default:
		b.nText++
	}
	b.cells = append(b.cells, c)
}

func (b *columnBuilder) addText(raw string, intern *StringIntern) {
	v := InferCell(raw)
	if v.Kind == models.KindText && intern != nil {
		v.Text = intern.Intern(v.Text)
	}
	b.add(cell{val: v, raw: raw, hasRaw: true})
}

func (b *columnBuilder) addValue(v models.Value) {
	b.add(cell{val: v})
}

// build settles the dtype:
//   - only numbers: int64 unless a float or a missing cell forces float64
//   - only booleans: bool, or object when any cell is missing
//   - only timestamps (missing allowed): datetime64[ns]
//   - nothing but missing cells: float64 (object when there are no rows)
//   - anything else: object
func (b *columnBuilder) build(intern *StringIntern) models.Column {
	col := models.Column{Name: b.name, Values: make([]models.Value, len(b.cells))}
	nonMissing := len(b.cells) - b.nMissing

	switch {
	case len(b.cells) == 0:
		col.Type = models.TypeObject
	case nonMissing == 0:
		col.Type = models.TypeFloat64
		// every cell is already missing
	case b.nBool == 0 && b.nTime == 0 && b.nText == 0:
		if b.nFloat == 0 && b.nMissing == 0 {
			col.Type = models.TypeInt64
			for i, c := range b.cells {
				col.Values[i] = c.val
			}
			return col
		}
		col.Type = models.TypeFloat64
		for i, c := range b.cells {
			if f, ok := c.val.Number(); ok {
				col.Values[i] = models.FloatValue(f)
			}
		}
		return col
	case b.nBool == nonMissing && b.nMissing == 0:
		col.Type = models.TypeBool
		for i, c := range b.cells {
			col.Values[i] = c.val
		}
		return col
	case b.nTime == nonMissing:
		col.Type = models.TypeDatetime
		for i, c := range b.cells {
			col.Values[i] = c.val
		}
		return col
	default:
		col.Type = models.TypeObject
		for i, c := range b.cells {
			switch {
			case c.val.IsMissing():
			case c.hasRaw:
				raw := c.raw
				if intern != nil {
					raw = intern.Intern(raw)
				}
				col.Values[i] = models.TextValue(raw)
			default:
				col.Values[i] = c.val
			}
		}
	}
	return col
}

// headerNames fills blank names with "Unnamed: <i>" and de-duplicates
// repeats as "name.1", "name.2", ...
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	for i, n := range raw {
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		names[i] = n
	}

	counts := make(map[string]int, len(names))
	for i, name := range names {
		cur := counts[name]
		for cur > 0 {
			counts[name] = cur + 1
			name = fmt.Sprintf("%s.%d", name, cur)
			cur = counts[name]
		}
		names[i] = name
		counts[name] = cur + 1
	}
	return names
}
