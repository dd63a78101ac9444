// Package models contains domain types for the EDA explorer backend.
package models

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind tags the scalar held by a Value.
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
	KindText
)

// Value is a single table cell.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
	Text  string
}

// Missing returns the missing-value cell.
func Missing() Value { return Value{} }

// IntValue wraps an integer cell.
func IntValue(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FloatValue wraps a floating-point cell. NaN is stored as missing.
func FloatValue(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{Kind: KindFloat, Float: v}
}

// BoolValue wraps a boolean cell.
func BoolValue(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// TimeValue wraps a timestamp cell.
func TimeValue(v time.Time) Value { return Value{Kind: KindTime, Time: v} }

// TextValue wraps a text cell.
func TextValue(v string) Value { return Value{Kind: KindText, Text: v} }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Number returns the cell as float64 for int and float cells.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Equal compares kind and payload. Two missing values are equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindMissing:
		return true
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	default:
		return v.Text == o.Text
	}
}

// String renders the cell for display. Missing renders as "".
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case KindTime:
		return v.Time.Format(TimeLayout)
	case KindText:
		return v.Text
	}
	return ""
}

// Interface returns the cell as a plain Go value (nil when missing).
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		if math.IsInf(v.Float, 0) {
			return v.String()
		}
		return v.Float
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time.Format(TimeLayout)
	case KindText:
		return v.Text
	}
	return nil
}

// TimeLayout is used when timestamps are rendered as text.
const TimeLayout = "2006-01-02 15:04:05"

// ScalarType is the inferred type of a column. The names follow the dtype
// names of the dataframe library the UI was first built on.
type ScalarType string

const (
	TypeObject   ScalarType = "object"
	TypeInt64    ScalarType = "int64"
	TypeFloat64  ScalarType = "float64"
	TypeBool     ScalarType = "bool"
	TypeDatetime ScalarType = "datetime64[ns]"
)

// Family groups scalar types by the statistics computed for them.
type Family string

const (
	FamilyNumeric  Family = "numeric"
	FamilyText     Family = "text"
	FamilyBoolean  Family = "boolean"
	FamilyTemporal Family = "temporal"
)

// Family returns the statistic family of the type.
func (t ScalarType) Family() Family {
	switch t {
	case TypeInt64, TypeFloat64:
		return FamilyNumeric
	case TypeBool:
		return FamilyBoolean
	case TypeDatetime:
		return FamilyTemporal
	}
	return FamilyText
}

// Column is a named, typed sequence of cells.
type Column struct {
	Name   string
	Type   ScalarType
	Values []Value
}

// Table is an ordered set of equally long, uniquely named columns.
// Tables are never mutated after construction.
type Table struct {
	Columns []Column
	index   map[string]int
}

// NewTable validates the column set and builds a Table.
func NewTable(cols []Column) (*Table, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i > 0 && len(c.Values) != len(cols[0].Values) {
			return nil, fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), len(cols[0].Values))
		}
		index[c.Name] = i
	}
	return &Table{Columns: cols, index: index}, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnNames returns the names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return &t.Columns[i], true
}

// Row returns the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j := range t.Columns {
		row[j] = t.Columns[j].Values[i]
	}
	return row
}
