// Package xlsx extracts a flat table from an open-XML spreadsheet package.
//
// The format is a zip container holding a shared-string table
// (xl/sharedStrings.xml) and one or more worksheet parts
// (xl/worksheets/sheetN.xml). Only the first worksheet is read.
package xlsx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrCorruptPackage indicates the input is not a readable spreadsheet package.
	ErrCorruptPackage = errors.New("corrupt spreadsheet package")
	// ErrMissingWorksheet indicates the package holds no worksheet part.
	ErrMissingWorksheet = errors.New("missing worksheet")
)

const (
	sharedStringsPart = "xl/sharedStrings.xml"
	worksheetPrefix   = "xl/worksheets/"
	firstWorksheet    = "xl/worksheets/sheet1.xml"
)

type sharedStrings struct {
	Items []sharedStringItem `xml:"si"`
}

type sharedStringItem struct {
	Text string          `xml:"t"`
	Runs []sharedStrRun  `xml:"r"`
}

type sharedStrRun struct {
	Text string `xml:"t"`
}

func (i sharedStringItem) value() string {
	if len(i.Runs) == 0 {
		return i.Text
	}
	var sb strings.Builder
	for _, run := range i.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

type worksheet struct {
	Rows []sheetRow `xml:"sheetData>row"`
}

type sheetRow struct {
	Cells []sheetCell `xml:"c"`
}

type sheetCell struct {
	Ref    string     `xml:"r,attr"`
	Type   string     `xml:"t,attr"`
	Value  string     `xml:"v"`
	Inline inlineText `xml:"is"`
}

type inlineText struct {
	Text string `xml:"t"`
}

// Parse reads the first worksheet into dense rows of strings. Cells that are
// shared-string references are substituted from the shared-string table; rows
// are pre-filled with empty strings up to their maximal occupied column.
func Parse(data []byte) ([][]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPackage, err)
	}

	shared, err := readSharedStrings(reader)
	if err != nil {
		return nil, err
	}

	sheetFile, err := findWorksheet(reader)
	if err != nil {
		return nil, err
	}

	var sheet worksheet
	if err := decodePart(sheetFile, &sheet); err != nil {
		return nil, fmt.Errorf("%w: worksheet: %v", ErrCorruptPackage, err)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		maxCol := -1
		for _, cell := range row.Cells {
			col, ok := columnIndex(cell.Ref)
			if ok && col > maxCol {
				maxCol = col
			}
		}

		values := make([]string, maxCol+1)
		for _, cell := range row.Cells {
			col, ok := columnIndex(cell.Ref)
			if !ok {
				continue
			}
			values[col] = cellValue(cell, shared)
		}
		rows = append(rows, values)
	}

	return rows, nil
}

func readSharedStrings(reader *zip.Reader) ([]string, error) {
	file := findPart(reader, sharedStringsPart)
	if file == nil {
		// Workbooks with only inline or numeric cells carry no shared-string part.
		return nil, nil
	}

	var table sharedStrings
	if err := decodePart(file, &table); err != nil {
		return nil, fmt.Errorf("%w: shared strings: %v", ErrCorruptPackage, err)
	}

	values := make([]string, len(table.Items))
	for i, item := range table.Items {
		values[i] = item.value()
	}
	return values, nil
}

func findWorksheet(reader *zip.Reader) (*zip.File, error) {
	if file := findPart(reader, firstWorksheet); file != nil {
		return file, nil
	}

	var candidates []*zip.File
	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, worksheetPrefix) && strings.HasSuffix(file.Name, ".xml") {
			candidates = append(candidates, file)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrMissingWorksheet
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates[0], nil
}

func findPart(reader *zip.Reader, name string) *zip.File {
	for _, file := range reader.File {
		if file.Name == name {
			return file
		}
	}
	return nil
}

func decodePart(file *zip.File, dst any) error {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, dst)
}

func cellValue(cell sheetCell, shared []string) string {
	switch cell.Type {
	case "s":
		index, err := strconv.Atoi(strings.TrimSpace(cell.Value))
		if err != nil || index < 0 || index >= len(shared) {
			return ""
		}
		return shared[index]
	case "inlineStr":
		return cell.Inline.Text
	default:
		return cell.Value
	}
}

// columnIndex converts a cell reference label to a zero-based column index:
// "A1" yields 0, "C7" yields 2, "AA3" yields 26.
func columnIndex(ref string) (int, bool) {
	letters := ref
	for i, r := range ref {
		if r >= '0' && r <= '9' {
			letters = ref[:i]
			break
		}
	}
	if letters == "" {
		return 0, false
	}

	index := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		index = index*26 + int(r-'A') + 1
	}
	return index - 1, true
}
