package audit

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit for sheet names.
const maxSheetName = 31

var errNoSheet = errors.New("no active sheet")

// sheetWriter appends rows to sheets of a single workbook.
type sheetWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	headerStyle  int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet; the first call renames the default one.
func (w *sheetWriter) AddSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

func (w *sheetWriter) WriteHeader(columns []string) error {
	if w.currentSheet == "" {
		return errNoSheet
	}

	row := make([]interface{}, len(columns))
	for i, col := range columns {
		row[i] = col
	}
	if err := w.writeRow(row); err != nil {
		return err
	}

	if w.headerStyle == 0 {
		style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		w.headerStyle = style
	}
	startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
	endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
	if err := w.file.SetCellStyle(w.currentSheet, startCell, endCell, w.headerStyle); err != nil {
		return err
	}

	w.currentRow++
	return nil
}

func (w *sheetWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return errNoSheet
	}
	if err := w.writeRow(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *sheetWriter) writeRow(row []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.currentRow)
	if err != nil {
		return err
	}
	return w.file.SetSheetRow(w.currentSheet, cell, &row)
}

func (w *sheetWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *sheetWriter) Close() error {
	return w.file.Close()
}
