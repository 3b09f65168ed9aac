package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/onboardtrack/pkg/models"
)

func sampleReport() *models.ProgressReport {
	return &models.ProgressReport{
		SessionID:   "sess-e1",
		GeneratedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Overall: models.OverallProgress{
			SessionID:       "sess-e1",
			OverallProgress: 50,
			TotalSteps:      4,
			CompletedCount:  2,
			TimeSpent:       1200,
		},
		Blockers: []models.Blocker{
			{
				StepID:              "step-3",
				StepTitle:           "Connect integration",
				BlockerType:         "technical",
				Severity:            "high",
				Impact:              "high",
				TimeStuck:           25,
				Patterns:            []string{"excessive_time"},
				SuggestedResolution: "Investigate the reported errors and verify system status",
			},
		},
		CompletionRate:     50,
		SkipRate:           25,
		FailureRate:        25,
		EngagementScore:    0,
		DifficultyScore:    62,
		AverageTimePerStep: 10,
		Recommendations:    []string{"Failure rate is high: review failing steps for unclear requirements"},
		Trends: models.Trends{
			EngagementTrend: "decreasing",
			DifficultyTrend: "increasing",
			TimeEfficiency:  33.3,
		},
	}
}

func TestExportReportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	if err := ExportReport(sampleReport(), DefaultExportConfig(path)); err != nil {
		t.Fatalf("ExportReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "sess-e1") {
		t.Fatal("expected the session id in the CSV output")
	}
	if !strings.Contains(content, "Completion rate (%),50.0") {
		t.Fatalf("expected the completion rate row, got:\n%s", content)
	}
	if !strings.Contains(content, "Blocker,step-3,technical,high,high,excessive_time") {
		t.Fatalf("expected the blocker row, got:\n%s", content)
	}
}

func TestExportReportExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	if err := ExportReport(sampleReport(), DefaultExportConfig(path)); err != nil {
		t.Fatalf("ExportReport: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	label, err := f.GetCellValue("Summary", "A1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if label != "Session" {
		t.Fatalf("expected Session label in A1, got %q", label)
	}

	value, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if value != "sess-e1" {
		t.Fatalf("expected session id in B1, got %q", value)
	}

	stepID, err := f.GetCellValue("Blockers", "A2")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if stepID != "step-3" {
		t.Fatalf("expected the blocker step id, got %q", stepID)
	}
}

func TestExportReportWithoutBlockersSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	config := DefaultExportConfig(path)
	config.IncludeBlockers = false

	if err := ExportReport(sampleReport(), config); err != nil {
		t.Fatalf("ExportReport: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex("Blockers"); idx != -1 {
		t.Fatal("expected no blockers sheet when the section is disabled")
	}
}
