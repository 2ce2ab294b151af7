// Package workbook reads and writes the .xlsx translation workbook.
//
// A sheet's first row is its header; every later row is a record keyed by
// header name. Empty cells are absent from records.
package workbook

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/minios-linux/objtrans/table"
)

// DefaultFileName is the workbook written by export and retrieve.
const DefaultFileName = "i18n.xlsx"

// Record is one data row keyed by column name.
type Record = map[string]string

// Book is the content of a workbook.
type Book struct {
	// SheetNames lists the sheets in workbook order.
	SheetNames []string
	// Sheets maps a sheet name to its records.
	Sheets map[string][]Record
}

// Read loads every sheet of the workbook at path.
func Read(path string) (*Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	book := &Book{Sheets: make(map[string][]Record)}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q of %s: %w", name, path, err)
		}
		book.SheetNames = append(book.SheetNames, name)
		book.Sheets[name] = records(rows)
	}
	return book, nil
}

func records(rows [][]string) []Record {
	if len(rows) == 0 {
		return []Record{}
	}
	header := rows[0]
	out := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record)
		for i, v := range row {
			if i >= len(header) || header[i] == "" || v == "" {
				continue
			}
			rec[header[i]] = v
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	return out
}

// Write creates the workbook at path with one sheet per table sheet, in
// order. Nil cells are left empty.
func Write(path string, sheets []table.Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("writing workbook %s: no sheets", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("naming sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("adding sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s table.Sheet) error {
	set := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(s.Name, cell, v); err != nil {
			return fmt.Errorf("sheet %q cell %s: %w", s.Name, cell, err)
		}
		return nil
	}

	for c, h := range s.Header {
		if err := set(c+1, 1, h); err != nil {
			return err
		}
	}
	for r, rec := range s.Records() {
		for c, h := range s.Header {
			v, ok := rec[h]
			if !ok {
				continue
			}
			if err := set(c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	return nil
}
