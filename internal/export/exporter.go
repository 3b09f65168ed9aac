package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/onboardtrack/pkg/models"
)

// ExportConfig defines where and how a report is written
type ExportConfig struct {
	FilePath        string // Destination file; extension picks the format (.xlsx or .csv)
	SummarySheet    string // Name of the summary sheet
	BlockersSheet   string // Name of the blockers sheet
	IncludeBlockers bool   // Write the blockers sheet/section
}

// DefaultExportConfig returns the default export configuration
func DefaultExportConfig(filePath string) ExportConfig {
	return ExportConfig{
		FilePath:        filePath,
		SummarySheet:    "Summary",
		BlockersSheet:   "Blockers",
		IncludeBlockers: true,
	}
}

// ExportReport writes a progress report to an Excel workbook or a CSV
// file, chosen by the file extension
func ExportReport(report *models.ProgressReport, config ExportConfig) error {
	ext := strings.ToLower(filepath.Ext(config.FilePath))

	if ext == ".csv" {
		return exportToCSV(report, config)
	}

	return exportToExcel(report, config)
}

// summaryRows flattens the report into label/value pairs shared by both
// output formats
func summaryRows(report *models.ProgressReport) [][2]string {
	rows := [][2]string{
		{"Session", report.SessionID},
		{"Generated at", report.GeneratedAt.Format(time.RFC3339)},
		{"Overall progress (%)", fmt.Sprintf("%.2f", report.Overall.OverallProgress)},
		{"Completed steps", fmt.Sprintf("%d of %d", report.Overall.CompletedCount, report.Overall.TotalSteps)},
		{"Time spent (minutes)", fmt.Sprintf("%.1f", float64(report.Overall.TimeSpent)/60)},
		{"Completion rate (%)", fmt.Sprintf("%.1f", report.CompletionRate)},
		{"Skip rate (%)", fmt.Sprintf("%.1f", report.SkipRate)},
		{"Failure rate (%)", fmt.Sprintf("%.1f", report.FailureRate)},
		{"Engagement score", fmt.Sprintf("%.1f", report.EngagementScore)},
		{"Difficulty score", fmt.Sprintf("%.1f", report.DifficultyScore)},
		{"Average time per step (minutes)", fmt.Sprintf("%.1f", report.AverageTimePerStep)},
		{"Engagement trend", report.Trends.EngagementTrend},
		{"Difficulty trend", report.Trends.DifficultyTrend},
		{"Time efficiency", fmt.Sprintf("%.1f", report.Trends.TimeEfficiency)},
		{"Achievements", fmt.Sprintf("%d", len(report.Overall.Achievements))},
	}
	for i, rec := range report.Recommendations {
		rows = append(rows, [2]string{fmt.Sprintf("Recommendation %d", i+1), rec})
	}
	return rows
}

// exportToExcel writes the report as an Excel workbook
func exportToExcel(report *models.ProgressReport, config ExportConfig) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := config.SummarySheet
	if sheet == "" {
		sheet = "Summary"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %v", err)
	}

	for i, row := range summaryRows(report) {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+1), row[1])
	}

	if config.IncludeBlockers && len(report.Blockers) > 0 {
		blockersSheet := config.BlockersSheet
		if blockersSheet == "" {
			blockersSheet = "Blockers"
		}
		if _, err := f.NewSheet(blockersSheet); err != nil {
			return fmt.Errorf("failed to create blockers sheet: %v", err)
		}

		headers := []string{"Step", "Title", "Type", "Severity", "Impact", "Time stuck (min)", "Patterns", "Suggested resolution"}
		for col, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(blockersSheet, cell, header)
		}

		for i, b := range report.Blockers {
			values := []interface{}{
				b.StepID,
				b.StepTitle,
				b.BlockerType,
				b.Severity,
				b.Impact,
				b.TimeStuck,
				strings.Join(b.Patterns, ", "),
				b.SuggestedResolution,
			}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
				f.SetCellValue(blockersSheet, cell, value)
			}
		}
	}

	if err := f.SaveAs(config.FilePath); err != nil {
		return fmt.Errorf("failed to save report workbook: %v", err)
	}
	return nil
}

// exportToCSV writes the report as a flat CSV file
func exportToCSV(report *models.ProgressReport, config ExportConfig) error {
	file, err := os.Create(config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	for _, row := range summaryRows(report) {
		if err := writer.Write([]string{row[0], row[1]}); err != nil {
			return fmt.Errorf("failed to write report row: %v", err)
		}
	}

	if config.IncludeBlockers {
		for _, b := range report.Blockers {
			record := []string{
				"Blocker",
				b.StepID,
				b.BlockerType,
				b.Severity,
				b.Impact,
				strings.Join(b.Patterns, ", "),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write blocker row: %v", err)
			}
		}
	}

	return nil
}
