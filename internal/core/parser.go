package core

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SalesRecord is one transaction row from an uploaded workbook.
type SalesRecord struct {
	Date           time.Time
	DocumentNumber string
	City           string
	CustomerName   string
	ItemName       string
	SalesName      string
	Currency       string
	Quantity       float64
	Amount         float64
}

type SalesTable struct {
	Rows        []SalesRecord
	SkippedRows int

	HasSalesNames     bool
	HasCities         bool
	HasDocumentNumber bool
	HasCurrency       bool
}

var requiredColumns = []string{"date", "customer name", "item name", "quantity", "amount"}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"01/02/06",
	"1/2/06",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-Jan-06",
	"Jan 2, 2006",
	time.RFC3339,
}

// ParseWorkbook reads the first sheet of an xlsx stream into a SalesTable.
// Rows with an unparseable date or quantity are counted as skipped rather
// than failing the whole workbook; a missing required header is fatal.
func ParseWorkbook(r io.Reader) (*SalesTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook contains no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	columns := make(map[string]int)
	for idx, header := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(header))
		if name == "" {
			continue
		}
		if _, exists := columns[name]; !exists {
			columns[name] = idx
		}
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	table := &SalesTable{}
	_, table.HasSalesNames = columns["sales name"]
	_, table.HasCities = columns["city"]
	_, table.HasDocumentNumber = columns["document number"]
	_, table.HasCurrency = columns["currency"]

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		date, err := parseCellDate(cellAt(row, columns["date"]))
		if err != nil {
			table.SkippedRows++
			continue
		}

		quantity, err := parseCellNumber(cellAt(row, columns["quantity"]))
		if err != nil {
			table.SkippedRows++
			continue
		}

		// A row without an amount still contributes to quantity charts.
		amount, err := parseCellNumber(cellAt(row, columns["amount"]))
		if err != nil {
			amount = 0
		}

		record := SalesRecord{
			Date:         date,
			CustomerName: strings.TrimSpace(cellAt(row, columns["customer name"])),
			ItemName:     strings.TrimSpace(cellAt(row, columns["item name"])),
			Quantity:     quantity,
			Amount:       amount,
		}

		if table.HasSalesNames {
			record.SalesName = strings.TrimSpace(cellAt(row, columns["sales name"]))
		}
		if table.HasCities {
			record.City = strings.TrimSpace(cellAt(row, columns["city"]))
		}
		if table.HasDocumentNumber {
			record.DocumentNumber = strings.TrimSpace(cellAt(row, columns["document number"]))
		}
		if table.HasCurrency {
			record.Currency = strings.TrimSpace(cellAt(row, columns["currency"]))
		}

		if record.CustomerName == "" || record.ItemName == "" {
			table.SkippedRows++
			continue
		}

		table.Rows = append(table.Rows, record)
	}

	if len(table.Rows) == 0 {
		return nil, fmt.Errorf("workbook contains no usable data rows (%d skipped)", table.SkippedRows)
	}

	return table, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseCellDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date cell")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	// Unstyled date cells come back as Excel serial numbers.
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date value %q", value)
}

func parseCellNumber(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if value == "" {
		return 0, fmt.Errorf("empty numeric cell")
	}
	return strconv.ParseFloat(value, 64)
}
