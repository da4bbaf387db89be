package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

func ExportXLSX(rows []storage.ReportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{"run_id", "source", "project_id", "status", "reason", "created_at"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.RunID)
		set(2, row.Source)
		set(3, row.ProjectID)
		set(4, row.Status)
		set(5, row.Reason)
		set(6, row.CreatedAt)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
