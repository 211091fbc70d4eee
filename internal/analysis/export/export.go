// Package export renders a stored soil analysis, its moisture-tension curve and its
// horizon profile as CSV or as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"flahasoil/internal/soil"
)

// Format is an export file format
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// Sheet and section names
const (
	SectionSummary = "Summary"
	SectionCurve   = "Curve"
	SectionProfile = "Profile"
)

var curveColumns = []string{"tension_kpa", "log10_tension", "moisture_content_pct"}

var profileColumns = []string{
	"horizon", "depth_start_cm", "depth_end_cm", "thickness_cm", "organic_matter_pct",
	"bulk_density_factor", "field_capacity_pct", "wilting_point_pct",
	"plant_available_water_pct", "saturation_pct", "saturated_conductivity_mm_hr",
}

var summaryColumns = []string{"field", "value"}

// Document is everything written for one analysis
type Document struct {
	AnalysisID      string
	Label           string
	SampledAt       time.Time
	Location        *soil.Location
	Sample          soil.SoilSample
	Characteristics soil.WaterCharacteristics
	Curve           []soil.MoistureTensionPoint
	Profile         *soil.SoilProfile
}

// ParseFormat validates a requested format; an empty value means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatExcel:
		return FormatExcel, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// FileName returns the download name for an analysis
func (f Format) FileName(analysisID string) string {
	if f == FormatExcel {
		return fmt.Sprintf("soil-analysis-%s.xlsx", analysisID)
	}
	return fmt.Sprintf("soil-analysis-%s.csv", analysisID)
}

// Write renders doc to w in the given format.
func Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, doc, DefaultCSVOptions())
	case FormatExcel:
		return WriteExcel(w, doc, DefaultExcelOptions())
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// WriteCSV writes the summary, curve and profile sections one after another.
func WriteCSV(w io.Writer, doc Document, options CSVOptions) error {
	e := NewCSVExporter(w, options)
	if err := e.WriteSection(SectionSummary, summaryColumns, summaryRows(doc)); err != nil {
		return err
	}
	if err := e.WriteSection(SectionCurve, curveColumns, curveRows(doc.Curve)); err != nil {
		return err
	}
	if doc.Profile != nil {
		if err := e.WriteSection(SectionProfile, profileColumns, profileRows(doc.Profile)); err != nil {
			return err
		}
	}
	return e.Flush()
}

// WriteExcel writes one sheet per section.
func WriteExcel(w io.Writer, doc Document, options ExcelOptions) error {
	e := NewExcelExporter(options)
	defer e.Close()

	if err := e.AddSheet(SectionSummary, summaryColumns, summaryRows(doc)); err != nil {
		return err
	}
	if err := e.AddSheet(SectionCurve, curveColumns, curveRows(doc.Curve)); err != nil {
		return err
	}
	if doc.Profile != nil {
		if err := e.AddSheet(SectionProfile, profileColumns, profileRows(doc.Profile)); err != nil {
			return err
		}
	}
	if err := e.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func summaryRows(doc Document) [][]interface{} {
	c := doc.Characteristics
	rows := [][]interface{}{
		{"analysis_id", doc.AnalysisID},
		{"label", doc.Label},
		{"sampled_at", formatTimestamp(doc.SampledAt)},
		{"sand_pct", doc.Sample.SandPct},
		{"clay_pct", doc.Sample.ClayPct},
		{"silt_pct", doc.Sample.SiltPct()},
		{"organic_matter_pct", doc.Sample.OrganicMatterPct},
		{"bulk_density_factor", doc.Sample.BulkDensityFactor},
		{"texture_class", c.TextureClass},
		{"field_capacity_pct", c.FieldCapacityPct},
		{"wilting_point_pct", c.WiltingPointPct},
		{"plant_available_water_pct", c.PlantAvailableWaterPct},
		{"saturation_pct", c.SaturationPct},
		{"saturated_conductivity_mm_hr", c.SaturatedConductivity},
	}
	if doc.Location != nil {
		rows = append(rows,
			[]interface{}{"latitude", doc.Location.Latitude},
			[]interface{}{"longitude", doc.Location.Longitude},
		)
	}
	return rows
}

func curveRows(points []soil.MoistureTensionPoint) [][]interface{} {
	rows := make([][]interface{}, len(points))
	for i, p := range points {
		rows[i] = []interface{}{p.TensionKPa, p.TensionLog10, p.MoistureContentPct}
	}
	return rows
}

func profileRows(p *soil.SoilProfile) [][]interface{} {
	rows := make([][]interface{}, len(p.Horizons))
	for i, h := range p.Horizons {
		rows[i] = []interface{}{
			string(h.Name), h.DepthStart, h.DepthEnd, h.Thickness, h.OrganicMatterPct,
			h.BulkDensityFactor, h.Water.FieldCapacityPct, h.Water.WiltingPointPct,
			h.Water.PlantAvailableWaterPct, h.Water.SaturationPct, h.Water.SaturatedConductivity,
		}
	}
	return rows
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
