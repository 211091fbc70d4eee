package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes analysis sections to sheets of one workbook
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
	sheets  int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	FreezeHeader bool    `json:"freeze_header"`
	NumberFormat string  `json:"number_format"`
	ColumnWidth  float64 `json:"column_width"`
	HeaderFill   string  `json:"header_fill"`
	HeaderFont   string  `json:"header_font"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		NumberFormat: "0.0000",
		ColumnWidth:  22,
		HeaderFill:   "4472C4",
		HeaderFont:   "FFFFFF",
	}
}

// NewExcelExporter creates a workbook exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	return &ExcelExporter{
		file:    excelize.NewFile(),
		options: options,
	}
}

// AddSheet writes the column header and rows to a new sheet. The first sheet
// takes over the workbook's default one.
func (e *ExcelExporter) AddSheet(name string, columns []string, rows [][]interface{}) error {
	if e.sheets == 0 {
		if err := e.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := e.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	e.sheets++

	headerStyle, err := e.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{e.options.HeaderFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	numberStyle, err := e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.NumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(name, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		e.file.SetCellStyle(name, cell, cell, headerStyle)
	}

	for r, row := range rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if p, ok := val.(*float64); ok {
				if p == nil {
					continue
				}
				val = *p
			}
			if err := e.file.SetCellValue(name, cell, val); err != nil {
				return fmt.Errorf("failed to write %s: %w", cell, err)
			}
			if _, ok := val.(float64); ok {
				e.file.SetCellStyle(name, cell, cell, numberStyle)
			}
		}
	}

	if len(columns) > 0 && e.options.ColumnWidth > 0 {
		last, _ := excelize.ColumnNumberToName(len(columns))
		e.file.SetColWidth(name, "A", last, e.options.ColumnWidth)
	}
	if e.options.FreezeHeader {
		e.file.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

// Write writes the workbook to w
func (e *ExcelExporter) Write(w io.Writer) error {
	return e.file.Write(w)
}

// Close releases the workbook
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}
