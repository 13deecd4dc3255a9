package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"dashboard-backend/internal/database"
)

// WriteForecastCSV streams stored forecast points as CSV, one row per point.
func WriteForecastCSV(w io.Writer, points []database.ForecastPoint) error {
	writer := csv.NewWriter(w)

	header := []string{"sales_name", "customer_name", "item_name", "month", "kind", "quantity", "lower", "upper"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}

	for _, point := range points {
		row := []string{
			point.SalesName,
			point.CustomerName,
			point.ItemName,
			point.Month.Format("2006-01"),
			point.Kind,
			strconv.FormatFloat(point.Quantity, 'f', -1, 64),
			"",
			"",
		}
		if point.Lower.Valid {
			row[6] = strconv.FormatFloat(point.Lower.Float64, 'f', -1, 64)
		}
		if point.Upper.Valid {
			row[7] = strconv.FormatFloat(point.Upper.Float64, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// BuildActivityWorkbook renders the quarterly customer activity as a
// spreadsheet with one sheet per quarter.
func BuildActivityWorkbook(activity []QuarterActivity) (*excelize.File, error) {
	file := excelize.NewFile()

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("error creating header style: %w", err)
	}

	for i, quarter := range activity {
		sheet := quarter.Quarter
		if i == 0 {
			if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("error renaming sheet: %w", err)
			}
		} else {
			if _, err := file.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("error creating sheet %s: %w", sheet, err)
			}
		}

		if err := file.SetSheetRow(sheet, "A1", &[]any{"Active Customers", "Inactive Customers"}); err != nil {
			return nil, fmt.Errorf("error writing sheet header: %w", err)
		}
		if err := file.SetCellStyle(sheet, "A1", "B1", bold); err != nil {
			return nil, fmt.Errorf("error styling sheet header: %w", err)
		}

		for row, customer := range quarter.ActiveCustomers {
			cell, _ := excelize.CoordinatesToCellName(1, row+2)
			if err := file.SetCellValue(sheet, cell, customer); err != nil {
				return nil, fmt.Errorf("error writing active customer: %w", err)
			}
		}
		for row, customer := range quarter.InactiveCustomers {
			cell, _ := excelize.CoordinatesToCellName(2, row+2)
			if err := file.SetCellValue(sheet, cell, customer); err != nil {
				return nil, fmt.Errorf("error writing inactive customer: %w", err)
			}
		}

		if err := file.SetColWidth(sheet, "A", "B", 32); err != nil {
			return nil, fmt.Errorf("error sizing columns: %w", err)
		}
	}

	return file, nil
}
