package leaderboard

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []any{"Rank", "User ID", "Username", "Level", "Experience", "Current Streak", "Lessons Completed"}

// ExportXLSX writes entries as a spreadsheet with one sheet named after
// the period.
func ExportXLSX(w io.Writer, p Period, generatedAt time.Time, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := string(p)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	title := fmt.Sprintf("Leaderboard (%s), generated %s", p, generatedAt.UTC().Format(time.RFC3339))
	if err := f.SetCellValue(sheet, "A1", title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A3", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A3", "G3", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		row := []any{e.Rank, e.UserID, e.Username, e.Level, e.Experience, e.CurrentStreak, e.TotalLessonsCompleted}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(sheet, "C", "C", 24); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
