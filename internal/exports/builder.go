package exports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	masterdata "reef-cloud/internal/masterdata/domain"
	readings "reef-cloud/internal/readings/domain"
)

// ReportLine is one parameter row of a tank report.
type ReportLine struct {
	Parameter masterdata.Parameter
	Latest    *readings.ParameterReading
	Stats     *ReadingStats
	Goal      *readings.ParameterGoal
}

// ReadingStats summarizes a parameter's readings over the report window.
type ReadingStats struct {
	Count int
	Min   float64
	Max   float64
	Avg   float64
}

// SummarizeReadings computes window statistics, nil for no readings.
func SummarizeReadings(rows []readings.ParameterReading) *ReadingStats {
	if len(rows) == 0 {
		return nil
	}
	stats := ReadingStats{Count: len(rows), Min: rows[0].Value, Max: rows[0].Value}
	var sum float64
	for _, row := range rows {
		if row.Value < stats.Min {
			stats.Min = row.Value
		}
		if row.Value > stats.Max {
			stats.Max = row.Value
		}
		sum += row.Value
	}
	stats.Avg = sum / float64(len(rows))
	return &stats
}

// BuildReadingsXLSX renders a reading history as a workbook with a
// summary sheet and a readings sheet.
func BuildReadingsXLSX(tank *masterdata.Tank, parameter *masterdata.Parameter, rows []readings.ParameterReading) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	readingsSheet := "readings"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(readingsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Parameter Readings")
	_ = f.SetCellValue(summarySheet, "A3", "Tank")
	_ = f.SetCellValue(summarySheet, "B3", tank.Name)
	_ = f.SetCellValue(summarySheet, "A4", "Parameter")
	_ = f.SetCellValue(summarySheet, "B4", parameter.Name)
	_ = f.SetCellValue(summarySheet, "A5", "Readings")
	_ = f.SetCellValue(summarySheet, "B5", len(rows))
	if len(rows) > 0 {
		_ = f.SetCellValue(summarySheet, "A6", "From")
		_ = f.SetCellValue(summarySheet, "B6", rows[len(rows)-1].Time.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(summarySheet, "A7", "To")
		_ = f.SetCellValue(summarySheet, "B7", rows[0].Time.UTC().Format(time.RFC3339))
	}

	_ = f.SetCellValue(readingsSheet, "A1", "Time")
	_ = f.SetCellValue(readingsSheet, "B1", "Value")
	for i, row := range rows {
		line := i + 2
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("A%d", line), row.Time.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(readingsSheet, fmt.Sprintf("B%d", line), row.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTankReportPDF renders a per-parameter status report for a tank.
func BuildTankReportPDF(tank *masterdata.Tank, lines []ReportLine) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Tank Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Tank: %s", tank.Name))
	pdf.Ln(5)
	if tank.ApexHost != nil && *tank.ApexHost != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Controller: %s", *tank.ApexHost))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Parameter", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Latest", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Min", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Max", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Avg", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Goal", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range lines {
		latest := "-"
		if line.Latest != nil {
			latest = fmt.Sprintf("%.3f", line.Latest.Value)
		}
		minVal, maxVal, avgVal := "-", "-", "-"
		if line.Stats != nil {
			minVal = fmt.Sprintf("%.3f", line.Stats.Min)
			maxVal = fmt.Sprintf("%.3f", line.Stats.Max)
			avgVal = fmt.Sprintf("%.3f", line.Stats.Avg)
		}
		goal := "-"
		if line.Goal != nil {
			goal = fmt.Sprintf("%.2f - %.2f", line.Goal.LowLimit, line.Goal.HighLimit)
		}
		pdf.CellFormat(35, 6, line.Parameter.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, latest, "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, minVal, "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, maxVal, "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, avgVal, "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, goal, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
