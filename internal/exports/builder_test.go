package exports

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	masterdata "reef-cloud/internal/masterdata/domain"
	readings "reef-cloud/internal/readings/domain"
)

func TestBuildReadingsXLSX(t *testing.T) {
	tank := &masterdata.Tank{ID: 4, Name: "display"}
	parameter := &masterdata.Parameter{ID: 2, Name: "alkalinity"}
	rows := []readings.ParameterReading{
		{ID: 2, Value: 8.6, Time: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)},
		{ID: 1, Value: 8.5, Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	data, err := BuildReadingsXLSX(tank, parameter, rows)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	if got, _ := f.GetCellValue("summary", "B3"); got != "display" {
		t.Errorf("summary tank cell %q", got)
	}
	if got, _ := f.GetCellValue("summary", "B4"); got != "alkalinity" {
		t.Errorf("summary parameter cell %q", got)
	}
	if got, _ := f.GetCellValue("readings", "A2"); got != "2026-03-02T12:00:00Z" {
		t.Errorf("first reading time cell %q", got)
	}
	if got, _ := f.GetCellValue("readings", "B3"); got != "8.5" {
		t.Errorf("second reading value cell %q", got)
	}
}

func TestBuildReadingsXLSX_EmptyHistory(t *testing.T) {
	tank := &masterdata.Tank{ID: 4, Name: "display"}
	parameter := &masterdata.Parameter{ID: 2, Name: "alkalinity"}

	data, err := BuildReadingsXLSX(tank, parameter, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty workbook bytes")
	}
}

func TestSummarizeReadings(t *testing.T) {
	if stats := SummarizeReadings(nil); stats != nil {
		t.Fatalf("empty history must summarize to nil, got %+v", stats)
	}

	stats := SummarizeReadings([]readings.ParameterReading{
		{Value: 8.6}, {Value: 8.2}, {Value: 8.4},
	})
	if stats == nil {
		t.Fatal("nil stats")
	}
	if stats.Count != 3 || stats.Min != 8.2 || stats.Max != 8.6 {
		t.Fatalf("stats %+v", stats)
	}
	if stats.Avg < 8.399 || stats.Avg > 8.401 {
		t.Fatalf("avg %v, want 8.4", stats.Avg)
	}
}

func TestBuildTankReportPDF(t *testing.T) {
	host := "apex.local"
	tank := &masterdata.Tank{ID: 4, Name: "display", ApexHost: &host}
	lines := []ReportLine{
		{
			Parameter: masterdata.Parameter{ID: 2, Name: "alkalinity"},
			Latest: &readings.ParameterReading{
				Value: 8.5,
				Time:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
			Stats: &ReadingStats{Count: 48, Min: 8.1, Max: 8.7, Avg: 8.4},
			Goal:  &readings.ParameterGoal{LowLimit: 7.5, HighLimit: 9.5},
		},
		{Parameter: masterdata.Parameter{ID: 1, Name: "temperature"}},
	}

	data, err := BuildTankReportPDF(tank, lines)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output does not look like a pdf: %q", data[:min(16, len(data))])
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
