package cli

import (
	"fmt"
	"io"

	"github.com/hyperjump/resumatch/pkg/utils"
	"github.com/xuri/excelize/v2"
)

const matchesSheet = "Matches"

var xlsxHeader = []interface{}{"Rank", "Resume ID", "Score", "Preview"}

func writeMatchesXLSX(w io.Writer, report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", matchesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(matchesSheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(matchesSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	scoreFmt := "0.0000"
	score, err := f.NewStyle(&excelize.Style{CustomNumFmt: &scoreFmt})
	if err != nil {
		return fmt.Errorf("score style: %w", err)
	}

	for i, m := range report.Matches {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := []interface{}{i + 1, m.DocumentID, m.Score, utils.Truncate(report.Previews[m.DocumentID], 200)}
		if err := f.SetSheetRow(matchesSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
		scoreCell, err := excelize.CoordinatesToCellName(3, row)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(matchesSheet, scoreCell, scoreCell, score); err != nil {
			return fmt.Errorf("score style: %w", err)
		}
	}
	if err := f.SetColWidth(matchesSheet, "B", "B", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(matchesSheet, "D", "D", 80); err != nil {
		return err
	}
	if report.Query != "" {
		if _, err := f.NewSheet("Query"); err != nil {
			return fmt.Errorf("query sheet: %w", err)
		}
		if err := f.SetCellStr("Query", "A1", utils.Truncate(report.Query, 32000)); err != nil {
			return err
		}
	}
	return f.Write(w)
}
