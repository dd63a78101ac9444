package loader

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/eda-explorer/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ExcelLoader reads .xlsx workbooks.
type ExcelLoader struct{}

// NewExcelLoader creates a workbook loader.
func NewExcelLoader() *ExcelLoader {
	return &ExcelLoader{}
}

// Kind implements Loader.
func (l *ExcelLoader) Kind() models.FileKind { return models.FileKindExcel }

// Sheets lists the sheet names in workbook order.
func (l *ExcelLoader) Sheets(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, unreadable("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, unreadable("no sheets found in workbook")
	}
	return sheets, nil
}

// Load implements Loader. An empty sheet name selects the first sheet; rows
// above hints.HeaderRow are discarded and that row names the columns.
func (l *ExcelLoader) Load(data []byte, hints models.LoadHints) (*models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, unreadable("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, unreadable("no sheets found in workbook")
	}
	sheet := hints.SheetName
	if sheet == "" {
		sheet = sheets[0]
	} else if !containsSheet(sheets, sheet) {
		return nil, unreadable("sheet %q not found, available sheets: %s", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, unreadable("read sheet %q: %v", sheet, err)
	}
	if hints.HeaderRow < 0 || hints.HeaderRow >= len(rows) {
		return nil, unreadable("header row %d is out of range: sheet %q has %d rows", hints.HeaderRow, sheet, len(rows))
	}

	r := newCellReader(f, sheet)

	width := 0
	for _, row := range rows[hints.HeaderRow:] {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, unreadable("no columns to parse from sheet %q", sheet)
	}

	rawHeader := make([]string, width)
	for j := 0; j < width && j < len(rows[hints.HeaderRow]); j++ {
		v := r.value(hints.HeaderRow, j, rows[hints.HeaderRow][j])
		if !v.IsMissing() {
			rawHeader[j] = v.String()
		}
	}
	names := headerNames(rawHeader)

	dataRows := rows[hints.HeaderRow+1:]
	builders := make([]*columnBuilder, width)
	for j, name := range names {
		builders[j] = newColumnBuilder(name, len(dataRows))
	}

	for i, row := range dataRows {
		if isBlankRow(row) {
			continue
		}
		rowIdx := hints.HeaderRow + 1 + i
		for j := 0; j < width; j++ {
			if j >= len(row) {
				builders[j].addValue(models.Missing())
				continue
			}
			builders[j].addValue(r.value(rowIdx, j, row[j]))
		}
	}
	if r.err != nil {
		return nil, unreadable("read sheet %q: %v", sheet, r.err)
	}

	cols := make([]models.Column, width)
	for j, b := range builders {
		cols[j] = b.build(nil)
	}
	t, err := models.NewTable(cols)
	if err != nil {
		return nil, unreadable("%v", err)
	}
	return t, nil
}

func containsSheet(sheets []string, name string) bool {
	for _, s := range sheets {
		if s == name {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellReader converts raw cell text into typed values using the cell type
// and number format recorded in the workbook.
type cellReader struct {
	f         *excelize.File
	sheet     string
	date1904  bool
	dateStyle map[int]bool
	err       error
}

func newCellReader(f *excelize.File, sheet string) *cellReader {
	r := &cellReader{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	return r
}

func (r *cellReader) value(row, col int, raw string) models.Value {
	if raw == "" {
		return models.Missing()
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		r.fail(err)
		return models.TextValue(raw)
	}
	typ, err := r.f.GetCellType(r.sheet, axis)
	if err != nil {
		r.fail(err)
		return models.TextValue(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return models.BoolValue(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return models.TextValue(raw)
	case excelize.CellTypeDate:
		if t, ok := parseISOTime(raw); ok {
			return models.TimeValue(t)
		}
		return models.TextValue(raw)
	}

	// Unset (plain number), number and formula cells: numeric text is a
	// number or, under a date format, a serial date.
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return models.TextValue(raw)
	}
	if r.isDateCell(axis) {
		t, err := excelize.ExcelDateToTime(f, r.date1904)
		if err == nil {
			return models.TimeValue(t)
		}
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return models.IntValue(int64(f))
	}
	return models.FloatValue(f)
}

func (r *cellReader) isDateCell(axis string) bool {
	idx, err := r.f.GetCellStyle(r.sheet, axis)
	if err != nil {
		return false
	}
	if is, ok := r.dateStyle[idx]; ok {
		return is
	}
	is := false
	if style, err := r.f.GetStyle(idx); err == nil && style != nil {
		is = isDateNumFmt(style.NumFmt)
		if style.CustomNumFmt != nil {
			is = isDateFormatCode(*style.CustomNumFmt)
		}
	}
	r.dateStyle[idx] = is
	return is
}

func (r *cellReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// isDateNumFmt reports whether a built-in number format id renders dates or
// times.
func isDateNumFmt(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode scans a custom format code for date/time tokens outside
// quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '\\':
			i++
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		default:
			switch c {
			case 'y', 'Y', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
		}
	}
	return false
}

func parseISOTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
