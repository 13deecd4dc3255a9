package core

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, headers []string, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headerRow := make([]any, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &headerRow))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var fullHeaders = []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount", "Sales Name", "City", "Document Number", "Currency"}

func salesRow(date, customer, item string, quantity, amount float64, extra ...string) []any {
	row := []any{date, customer, item, quantity, amount}
	for _, v := range extra {
		row = append(row, v)
	}
	return row
}

func TestParseWorkbook(t *testing.T) {
	buf := buildWorkbook(t, fullHeaders, [][]any{
		salesRow("2024-01-15", "Acme", "Widget", 10, 2500, "Alice", "Jakarta", "DOC-1", "Rupiah"),
		salesRow("2024-02-20", "Beta Corp", "Gadget", 5, 120, "Bob", "Surabaya", "DOC-2", "US Dollar"),
	})

	table, err := ParseWorkbook(buf)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 2)
	assert.Equal(t, 0, table.SkippedRows)
	assert.True(t, table.HasSalesNames)
	assert.True(t, table.HasCities)
	assert.True(t, table.HasDocumentNumber)
	assert.True(t, table.HasCurrency)

	first := table.Rows[0]
	assert.Equal(t, "Acme", first.CustomerName)
	assert.Equal(t, "Widget", first.ItemName)
	assert.Equal(t, "Alice", first.SalesName)
	assert.Equal(t, "Jakarta", first.City)
	assert.Equal(t, "DOC-1", first.DocumentNumber)
	assert.Equal(t, "Rupiah", first.Currency)
	assert.Equal(t, 10.0, first.Quantity)
	assert.Equal(t, 2500.0, first.Amount)
	assert.Equal(t, 2024, first.Date.Year())
}

func TestParseWorkbookMinimalColumns(t *testing.T) {
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount"}, [][]any{
		salesRow("2024-01-15", "Acme", "Widget", 10, 2500),
	})

	table, err := ParseWorkbook(buf)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 1)
	assert.False(t, table.HasSalesNames)
	assert.False(t, table.HasCities)
	assert.False(t, table.HasDocumentNumber)
	assert.False(t, table.HasCurrency)
}

func TestParseWorkbookMissingRequiredColumn(t *testing.T) {
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity"}, [][]any{
		{"2024-01-15", "Acme", "Widget", 10},
	})

	_, err := ParseWorkbook(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestParseWorkbookSkipsBadRows(t *testing.T) {
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount"}, [][]any{
		salesRow("2024-01-15", "Acme", "Widget", 10, 2500),
		{"not a date", "Acme", "Widget", 10, 2500},
		{"2024-01-16", "Acme", "Widget", "many", 2500},
		{"2024-01-17", "", "Widget", 10, 2500},
	})

	table, err := ParseWorkbook(buf)
	require.NoError(t, err)

	assert.Len(t, table.Rows, 1)
	assert.Equal(t, 3, table.SkippedRows)
}

func TestParseWorkbookMissingAmountDefaultsToZero(t *testing.T) {
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount"}, [][]any{
		{"2024-01-15", "Acme", "Widget", 10, ""},
	})

	table, err := ParseWorkbook(buf)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, 0.0, table.Rows[0].Amount)
}

func TestParseWorkbookNoUsableRows(t *testing.T) {
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount"}, [][]any{
		{"garbage", "Acme", "Widget", 10, 100},
	})

	_, err := ParseWorkbook(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable data rows")
}

func TestParseWorkbookManyRows(t *testing.T) {
	var rows [][]any
	for i := 0; i < 500; i++ {
		rows = append(rows, salesRow(fmt.Sprintf("2024-01-%02d", i%28+1), fmt.Sprintf("Customer %d", i%7), "Widget", 1, 100))
	}
	buf := buildWorkbook(t, []string{"Date", "Customer Name", "Item Name", "Quantity", "Amount"}, rows)

	table, err := ParseWorkbook(buf)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 500)
}
