package testsupport

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"
)

// Workbook builds an open-XML spreadsheet package from dense string rows.
// Every cell is emitted as a shared-string reference, matching how desktop
// spreadsheet applications export text columns.
func Workbook(t testing.TB, rows [][]string) []byte {
	t.Helper()

	shared := make([]string, 0)
	sharedIndex := make(map[string]int)
	intern := func(value string) int {
		if idx, ok := sharedIndex[value]; ok {
			return idx
		}
		idx := len(shared)
		shared = append(shared, value)
		sharedIndex[value] = idx
		return idx
	}

	var sheet strings.Builder
	sheet.WriteString(xml.Header)
	sheet.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)
	for rowIdx, row := range rows {
		fmt.Fprintf(&sheet, `<row r="%d">`, rowIdx+1)
		for colIdx, value := range row {
			if value == "" {
				continue
			}
			fmt.Fprintf(&sheet, `<c r="%s%d" t="s"><v>%d</v></c>`, columnName(colIdx), rowIdx+1, intern(value))
		}
		sheet.WriteString(`</row>`)
	}
	sheet.WriteString(`</sheetData></worksheet>`)

	var sst strings.Builder
	sst.WriteString(xml.Header)
	fmt.Fprintf(&sst, `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="%d" uniqueCount="%d">`, len(shared), len(shared))
	for _, value := range shared {
		sst.WriteString("<si><t>")
		_ = xml.EscapeText(&sst, []byte(value))
		sst.WriteString("</t></si>")
	}
	sst.WriteString(`</sst>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml":        contentTypesXML,
		"xl/workbook.xml":            workbookXML,
		"xl/sharedStrings.xml":       sst.String(),
		"xl/worksheets/sheet1.xml":   sheet.String(),
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip part %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip part %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close workbook zip: %v", err)
	}
	return buf.Bytes()
}

// WorkbookWithoutSheets builds a zip container with no worksheet part.
func WorkbookWithoutSheets(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	if err != nil {
		t.Fatalf("create zip part: %v", err)
	}
	if _, err := w.Write([]byte(contentTypesXML)); err != nil {
		t.Fatalf("write zip part: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func columnName(index int) string {
	name := ""
	for {
		name = string(rune('A'+index%26)) + name
		index = index/26 - 1
		if index < 0 {
			return name
		}
	}
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`

const workbookXML = xml.Header + `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheets><sheet name="Sheet1" sheetId="1"/></sheets></workbook>`
