package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVExporter writes analysis sections as CSV
type CSVExporter struct {
	writer  *csv.Writer
	options CSVOptions
	rows    int
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter       rune   `json:"delimiter"`
	UseCRLF         bool   `json:"use_crlf"`
	TimestampFormat string `json:"timestamp_format"`
	// NumberFormat is a fmt verb such as "%.2f"; empty keeps full precision.
	NumberFormat string `json:"number_format"`
	NullValue    string `json:"null_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		TimestampFormat: time.RFC3339,
		NumberFormat:    "%.4f",
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	if options.Delimiter != 0 {
		writer.Comma = options.Delimiter
	}
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteSection writes a titled block: the title row, the column header and the rows,
// separated from any previous section by an empty row.
func (e *CSVExporter) WriteSection(title string, columns []string, rows [][]interface{}) error {
	if e.rows > 0 {
		if err := e.write([]string{""}); err != nil {
			return err
		}
	}
	if err := e.write([]string{"# " + title}); err != nil {
		return err
	}
	if err := e.write(columns); err != nil {
		return fmt.Errorf("failed to write %s header: %w", title, err)
	}
	for _, row := range rows {
		if err := e.WriteRow(row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", title, err)
		}
	}
	return nil
}

// WriteRow writes a single row of data
func (e *CSVExporter) WriteRow(row []interface{}) error {
	record := make([]string, len(row))
	for i, val := range row {
		record[i] = e.formatValue(val)
	}
	return e.write(record)
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) write(record []string) error {
	if err := e.writer.Write(record); err != nil {
		return err
	}
	e.rows++
	return nil
}

func (e *CSVExporter) formatValue(val interface{}) string {
	if val == nil {
		return e.options.NullValue
	}

	switch v := val.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		if e.options.NumberFormat != "" {
			return fmt.Sprintf(e.options.NumberFormat, v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *float64:
		if v == nil {
			return e.options.NullValue
		}
		return e.formatValue(*v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.TimestampFormat)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
