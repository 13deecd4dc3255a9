package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestSummarizeTopCustomers(t *testing.T) {
	table := &SalesTable{
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", Quantity: 10, Amount: 50000},
			{Date: day(2024, 1, 2), CustomerName: "Acme", ItemName: "Widget", Quantity: 5, Amount: 20000},
			{Date: day(2024, 1, 3), CustomerName: "Beta", ItemName: "Widget", Quantity: 100, Amount: 100},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.TopCustomersByQuantity, 2)
	assert.Equal(t, "Beta", summary.TopCustomersByQuantity[0].CustomerName)
	assert.Equal(t, 100.0, summary.TopCustomersByQuantity[0].Quantity)

	// Beta's 100 is under the USD threshold so it converts to 1.6M, beating
	// Acme's 70k which is already in IDR.
	require.Len(t, summary.TopCustomersByValue, 2)
	assert.Equal(t, "Beta", summary.TopCustomersByValue[0].CustomerName)
	assert.Equal(t, 1600000.0, summary.TopCustomersByValue[0].AmountIDR)
	assert.Equal(t, "Acme", summary.TopCustomersByValue[1].CustomerName)
	assert.Equal(t, 70000.0, summary.TopCustomersByValue[1].AmountIDR)
}

func TestSummarizeTopCustomersLimit(t *testing.T) {
	table := &SalesTable{}
	for i := 0; i < 8; i++ {
		table.Rows = append(table.Rows, SalesRecord{
			Date:         day(2024, 1, 1),
			CustomerName: fmt.Sprintf("Customer %d", i),
			ItemName:     "Widget",
			Quantity:     float64(i + 1),
			Amount:       100000,
		})
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	assert.Len(t, summary.TopCustomersByQuantity, 5)
	assert.Equal(t, "Customer 7", summary.TopCustomersByQuantity[0].CustomerName)
}

func TestSummarizeTopCities(t *testing.T) {
	table := &SalesTable{
		HasCities:         true,
		HasDocumentNumber: true,
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", City: "Jakarta", DocumentNumber: "A", Quantity: 1},
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", City: "Jakarta", DocumentNumber: "A", Quantity: 1},
			{Date: day(2024, 1, 2), CustomerName: "Acme", ItemName: "Widget", City: "Jakarta", DocumentNumber: "B", Quantity: 1},
			{Date: day(2024, 1, 3), CustomerName: "Acme", ItemName: "Widget", City: "Surabaya", DocumentNumber: "C", Quantity: 1},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.TopCities, 2)
	assert.Equal(t, CityStat{City: "Jakarta", ShipmentCount: 2}, summary.TopCities[0])
	assert.Equal(t, CityStat{City: "Surabaya", ShipmentCount: 1}, summary.TopCities[1])
}

func TestSummarizeTopCitiesAbsentWithoutColumn(t *testing.T) {
	table := &SalesTable{
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", Quantity: 1},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)
	assert.Empty(t, summary.TopCities)
}

func TestSummarizeTopSalespeople(t *testing.T) {
	table := &SalesTable{
		HasSalesNames: true,
		HasCurrency:   true,
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", SalesName: "Alice", Currency: "Rupiah", Quantity: 1, Amount: 500000},
			{Date: day(2024, 1, 2), CustomerName: "Acme", ItemName: "Widget", SalesName: "Bob", Currency: "US Dollar", Quantity: 1, Amount: 100},
			{Date: day(2024, 1, 3), CustomerName: "Acme", ItemName: "Widget", SalesName: "Carol", Currency: "Euro", Quantity: 1, Amount: 200},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.TopSalespeople, 3)
	assert.Equal(t, "Bob", summary.TopSalespeople[0].SalesName)
	assert.Equal(t, 1600000.0, summary.TopSalespeople[0].AmountIDR)
	assert.Equal(t, "Alice", summary.TopSalespeople[1].SalesName)
	// Unknown currencies are passed through unconverted.
	assert.Equal(t, "Carol", summary.TopSalespeople[2].SalesName)
	assert.Equal(t, 200.0, summary.TopSalespeople[2].AmountIDR)
}

func TestSummarizeMonthlyRevenue(t *testing.T) {
	table := &SalesTable{
		HasCurrency: true,
		Rows: []SalesRecord{
			{Date: day(2024, 1, 10), CustomerName: "Acme", ItemName: "Widget", Currency: "Rupiah", Quantity: 1, Amount: 100000},
			{Date: day(2024, 1, 20), CustomerName: "Acme", ItemName: "Widget", Currency: "Rupiah", Quantity: 1, Amount: 50000},
			{Date: day(2024, 3, 1), CustomerName: "Acme", ItemName: "Widget", Currency: "US Dollar", Quantity: 1, Amount: 10},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.MonthlyRevenue, 2)
	assert.Equal(t, MonthlyRevenuePoint{Month: "2024-01", AmountIDR: 150000}, summary.MonthlyRevenue[0])
	assert.Equal(t, MonthlyRevenuePoint{Month: "2024-03", AmountIDR: 160000}, summary.MonthlyRevenue[1])
}

func TestSummarizeQuarterlyActivity(t *testing.T) {
	table := &SalesTable{
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", Quantity: 1},
			{Date: day(2024, 2, 1), CustomerName: "Beta", ItemName: "Widget", Quantity: 1},
			{Date: day(2024, 4, 1), CustomerName: "Acme", ItemName: "Widget", Quantity: 1},
			{Date: day(2024, 7, 1), CustomerName: "Gamma", ItemName: "Widget", Quantity: 1},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.QuarterlyActivity, 3)

	q1 := summary.QuarterlyActivity[0]
	assert.Equal(t, "2024Q1", q1.Quarter)
	assert.Equal(t, []string{"Acme", "Beta"}, q1.ActiveCustomers)
	assert.Empty(t, q1.InactiveCustomers)

	q2 := summary.QuarterlyActivity[1]
	assert.Equal(t, "2024Q2", q2.Quarter)
	assert.Equal(t, []string{"Acme"}, q2.ActiveCustomers)
	assert.Equal(t, []string{"Beta"}, q2.InactiveCustomers)

	q3 := summary.QuarterlyActivity[2]
	assert.Equal(t, "2024Q3", q3.Quarter)
	assert.Equal(t, []string{"Gamma"}, q3.ActiveCustomers)
	assert.Equal(t, []string{"Acme", "Beta"}, q3.InactiveCustomers)
}

func TestSummarizeTopItems(t *testing.T) {
	table := &SalesTable{
		Rows: []SalesRecord{
			{Date: day(2024, 1, 1), CustomerName: "Acme", ItemName: "Widget", Quantity: 3},
			{Date: day(2024, 1, 2), CustomerName: "Acme", ItemName: "Widget", Quantity: 2},
			{Date: day(2024, 1, 3), CustomerName: "Acme", ItemName: "Gadget", Quantity: 4},
		},
	}

	summary := NewSummarizer(16000).Summarize(context.Background(), table)

	require.Len(t, summary.TopItems, 2)
	assert.Equal(t, ItemStat{ItemName: "Widget", Quantity: 5}, summary.TopItems[0])
	assert.Equal(t, ItemStat{ItemName: "Gadget", Quantity: 4}, summary.TopItems[1])
}
