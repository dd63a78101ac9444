package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// PeopleCSV is a small delimited fixture with text, integer and missing
// cells.
const PeopleCSV = "name,age,city\nann,31,Oslo\nbob,42,Rome\ncid,,Oslo\n"

// Workbook builds an .xlsx with one sheet per entry of sheets, each given as
// rows of cell values starting at A1.
func Workbook(t testing.TB, names []string, sheets map[string][][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, name := range names {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
	}
	for name, rows := range sheets {
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
