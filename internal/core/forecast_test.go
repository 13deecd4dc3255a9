package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthlySeries(start time.Time, quantities ...float64) []MonthlyPoint {
	points := make([]MonthlyPoint, len(quantities))
	for i, q := range quantities {
		points[i] = MonthlyPoint{Month: start.AddDate(0, i, 0), Quantity: q}
	}
	return points
}

func TestGroupSeriesResamplesGaps(t *testing.T) {
	table := &SalesTable{
		HasSalesNames: true,
		Rows: []SalesRecord{
			{Date: day(2024, 1, 5), SalesName: "Alice", CustomerName: "Acme", ItemName: "Widget", Quantity: 3},
			{Date: day(2024, 1, 20), SalesName: "Alice", CustomerName: "Acme", ItemName: "Widget", Quantity: 2},
			{Date: day(2024, 4, 1), SalesName: "Alice", CustomerName: "Acme", ItemName: "Widget", Quantity: 7},
			{Date: day(2024, 2, 1), SalesName: "Bob", CustomerName: "Beta", ItemName: "Gadget", Quantity: 1},
		},
	}

	series := GroupSeries(table)
	require.Len(t, series, 2)

	alice := series[SeriesKey{SalesName: "Alice", CustomerName: "Acme", ItemName: "Widget"}]
	require.Len(t, alice, 4)
	assert.Equal(t, 5.0, alice[0].Quantity)
	assert.Equal(t, 0.0, alice[1].Quantity)
	assert.Equal(t, 0.0, alice[2].Quantity)
	assert.Equal(t, 7.0, alice[3].Quantity)
	assert.Equal(t, day(2024, 1, 1), alice[0].Month)
	assert.Equal(t, day(2024, 4, 1), alice[3].Month)
}

func TestForecastSeriesTooShort(t *testing.T) {
	points := monthlySeries(day(2024, 1, 1), 1, 2, 3, 4, 5)
	assert.Nil(t, ForecastSeries(SeriesKey{}, points))
}

func TestForecastSeriesLinearTrend(t *testing.T) {
	quantities := make([]float64, 24)
	for i := range quantities {
		quantities[i] = float64(10 + i)
	}
	points := monthlySeries(day(2022, 1, 1), quantities...)

	result := ForecastSeries(SeriesKey{SalesName: "Alice"}, points)
	require.NotNil(t, result)
	require.Len(t, result.Forecast, ForecastHorizonMonths)

	assert.Equal(t, day(2024, 1, 1), result.Forecast[0].Month)
	assert.Equal(t, day(2024, 12, 1), result.Forecast[11].Month)

	// A perfectly linear series should extrapolate linearly.
	assert.InDelta(t, 34.0, result.Forecast[0].Quantity, 0.01)
	assert.InDelta(t, 45.0, result.Forecast[11].Quantity, 0.01)

	for _, interval := range result.Forecast {
		assert.LessOrEqual(t, interval.Lower, interval.Quantity)
		assert.GreaterOrEqual(t, interval.Upper, interval.Quantity)
	}
}

func TestForecastSeriesClampsNegatives(t *testing.T) {
	quantities := make([]float64, 12)
	for i := range quantities {
		quantities[i] = float64(11 - i)
	}
	points := monthlySeries(day(2023, 1, 1), quantities...)

	result := ForecastSeries(SeriesKey{}, points)
	require.NotNil(t, result)

	for _, interval := range result.Forecast {
		assert.GreaterOrEqual(t, interval.Quantity, 0.0)
		assert.GreaterOrEqual(t, interval.Lower, 0.0)
	}
	// The downward trend must eventually hit the floor.
	assert.Equal(t, 0.0, result.Forecast[11].Quantity)
}

func TestForecastSeriesConstantSeries(t *testing.T) {
	quantities := make([]float64, 12)
	for i := range quantities {
		quantities[i] = 5
	}
	points := monthlySeries(day(2023, 1, 1), quantities...)

	result := ForecastSeries(SeriesKey{}, points)
	require.NotNil(t, result)

	for _, interval := range result.Forecast {
		assert.InDelta(t, 5.0, interval.Quantity, 0.01)
	}
}

func TestForecastAllProgressAndOrder(t *testing.T) {
	series := map[SeriesKey][]MonthlyPoint{
		{SalesName: "Bob", CustomerName: "Beta", ItemName: "Gadget"}:   monthlySeries(day(2023, 1, 1), 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12),
		{SalesName: "Alice", CustomerName: "Acme", ItemName: "Widget"}: monthlySeries(day(2024, 1, 1), 1, 2, 3),
	}

	var order []SeriesKey
	var skips []bool
	results := ForecastAll(series, func(key SeriesKey, skipped bool) {
		order = append(order, key)
		skips = append(skips, skipped)
	})

	require.Len(t, results, 1)
	assert.Equal(t, "Bob", results[0].Key.SalesName)

	require.Len(t, order, 2)
	assert.Equal(t, "Alice", order[0].SalesName)
	assert.True(t, skips[0])
	assert.Equal(t, "Bob", order[1].SalesName)
	assert.False(t, skips[1])
}
