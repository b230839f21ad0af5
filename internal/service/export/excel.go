// Package export renders production records into downloadable workbooks.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"salakbook/internal/domain/models"
)

const (
	sheetName  = "Produksi"
	dateLayout = "2006-01-02"
)

// ProductionWorkbook renders the records into an xlsx workbook: one row per
// harvest day sorted by date, one column per farm, plus a total column.
func ProductionWorkbook(records []models.ProductionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	headers := []string{"Tanggal"}
	for _, farm := range models.Farms {
		headers = append(headers, string(farm))
	}
	headers = append(headers, "Total")

	for i, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle)

	sorted := make([]models.ProductionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for rowIdx, record := range sorted {
		row := rowIdx + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		f.SetCellValue(sheetName, cell, record.Date.Format(dateLayout))

		for colIdx, farm := range models.Farms {
			cell, _ := excelize.CoordinatesToCellName(colIdx+2, row)
			f.SetCellValue(sheetName, cell, record.Quantities[farm])
		}

		cell, _ = excelize.CoordinatesToCellName(len(models.Farms)+2, row)
		f.SetCellValue(sheetName, cell, record.TotalBakul())
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
