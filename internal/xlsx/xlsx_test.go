package xlsx_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"photomatch/internal/testsupport"
	"photomatch/internal/xlsx"
)

func TestParseResolvesSharedStrings(t *testing.T) {
	data := testsupport.Workbook(t, [][]string{
		{"CODICE", "COD.PR"},
		{"ABC123", "P001"},
		{"XYZ789", "P002"},
	})

	rows, err := xlsx.Parse(data)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "ABC123" || rows[1][1] != "P001" {
		t.Fatalf("unexpected row 1: %v", rows[1])
	}
	if rows[2][0] != "XYZ789" || rows[2][1] != "P002" {
		t.Fatalf("unexpected row 2: %v", rows[2])
	}
}

func TestParsePreFillsSparseRows(t *testing.T) {
	// Row with only column C occupied must still expose columns A and B.
	data := testsupport.Workbook(t, [][]string{
		{"", "", "holds-column-c"},
	})

	rows, err := xlsx.Parse(data)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if len(rows[0]) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(rows[0]))
	}
	if rows[0][0] != "" || rows[0][1] != "" || rows[0][2] != "holds-column-c" {
		t.Fatalf("unexpected row: %v", rows[0])
	}
}

func TestParseInlineValues(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("xl/worksheets/sheet1.xml")
	if err != nil {
		t.Fatalf("create sheet: %v", err)
	}
	sheet := `<worksheet><sheetData>` +
		`<row r="1"><c r="A1"><v>12345</v></c><c r="B1" t="inlineStr"><is><t>P010</t></is></c></row>` +
		`</sheetData></worksheet>`
	if _, err := w.Write([]byte(sheet)); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	rows, err := xlsx.Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if rows[0][0] != "12345" {
		t.Fatalf("expected literal numeric value, got %q", rows[0][0])
	}
	if rows[0][1] != "P010" {
		t.Fatalf("expected inline string value, got %q", rows[0][1])
	}
}

func TestParseRejectsNonZipInput(t *testing.T) {
	_, err := xlsx.Parse([]byte("this is not a spreadsheet"))
	if !errors.Is(err, xlsx.ErrCorruptPackage) {
		t.Fatalf("expected ErrCorruptPackage, got %v", err)
	}
}

func TestParseRejectsPackageWithoutWorksheet(t *testing.T) {
	data := testsupport.WorkbookWithoutSheets(t)

	_, err := xlsx.Parse(data)
	if !errors.Is(err, xlsx.ErrMissingWorksheet) {
		t.Fatalf("expected ErrMissingWorksheet, got %v", err)
	}
}
