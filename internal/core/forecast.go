package core

import (
	"math"
	"sort"
	"time"
)

const (
	// Series with fewer populated months than this are skipped, there is not
	// enough history to fit a seasonal model.
	MinMonthlyPoints = 10

	ForecastHorizonMonths = 12

	intervalZ = 1.96
)

type SeriesKey struct {
	SalesName    string
	CustomerName string
	ItemName     string
}

type MonthlyPoint struct {
	Month    time.Time
	Quantity float64
}

type SeriesForecast struct {
	Key      SeriesKey
	Actuals  []MonthlyPoint
	Forecast []ForecastInterval
}

type ForecastInterval struct {
	Month    time.Time
	Quantity float64
	Lower    float64
	Upper    float64
}

// GroupSeries buckets rows by (sales, customer, item) and resamples each
// bucket onto a contiguous monthly grid, filling gaps with zero.
func GroupSeries(table *SalesTable) map[SeriesKey][]MonthlyPoint {
	totals := make(map[SeriesKey]map[time.Time]float64)
	for _, row := range table.Rows {
		key := SeriesKey{
			SalesName:    row.SalesName,
			CustomerName: row.CustomerName,
			ItemName:     row.ItemName,
		}
		month := time.Date(row.Date.Year(), row.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if totals[key] == nil {
			totals[key] = make(map[time.Time]float64)
		}
		totals[key][month] += row.Quantity
	}

	series := make(map[SeriesKey][]MonthlyPoint, len(totals))
	for key, months := range totals {
		series[key] = resampleMonthly(months)
	}
	return series
}

func resampleMonthly(totals map[time.Time]float64) []MonthlyPoint {
	if len(totals) == 0 {
		return nil
	}

	var first, last time.Time
	for month := range totals {
		if first.IsZero() || month.Before(first) {
			first = month
		}
		if last.IsZero() || month.After(last) {
			last = month
		}
	}

	var points []MonthlyPoint
	for month := first; !month.After(last); month = month.AddDate(0, 1, 0) {
		points = append(points, MonthlyPoint{Month: month, Quantity: totals[month]})
	}
	return points
}

// ForecastSeries fits a linear trend with additive monthly seasonality and
// projects twelve months past the last observation. It returns nil when the
// series is too short to model.
func ForecastSeries(key SeriesKey, points []MonthlyPoint) *SeriesForecast {
	if len(points) < MinMonthlyPoints {
		return nil
	}

	n := len(points)

	// Least-squares fit of quantity against the month index.
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := float64(i)
		sumX += x
		sumY += p.Quantity
		sumXY += x * p.Quantity
		sumXX += x * x
	}
	denom := float64(n)*sumXX - sumX*sumX
	var slope, intercept float64
	if denom != 0 {
		slope = (float64(n)*sumXY - sumX*sumY) / denom
		intercept = (sumY - slope*sumX) / float64(n)
	} else {
		intercept = sumY / float64(n)
	}

	// Average detrended residual per calendar month.
	seasonalSum := make([]float64, 12)
	seasonalCount := make([]int, 12)
	for i, p := range points {
		m := int(p.Month.Month()) - 1
		seasonalSum[m] += p.Quantity - (intercept + slope*float64(i))
		seasonalCount[m]++
	}
	seasonal := make([]float64, 12)
	for m := range seasonal {
		if seasonalCount[m] > 0 {
			seasonal[m] = seasonalSum[m] / float64(seasonalCount[m])
		}
	}

	fitted := func(i int, month time.Time) float64 {
		return intercept + slope*float64(i) + seasonal[int(month.Month())-1]
	}

	var residualSq float64
	for i, p := range points {
		r := p.Quantity - fitted(i, p.Month)
		residualSq += r * r
	}
	stddev := math.Sqrt(residualSq / float64(n))

	last := points[n-1].Month
	forecast := make([]ForecastInterval, 0, ForecastHorizonMonths)
	for step := 1; step <= ForecastHorizonMonths; step++ {
		month := last.AddDate(0, step, 0)
		value := fitted(n-1+step, month)
		forecast = append(forecast, ForecastInterval{
			Month:    month,
			Quantity: math.Max(0, value),
			Lower:    math.Max(0, value-intervalZ*stddev),
			Upper:    math.Max(0, value+intervalZ*stddev),
		})
	}

	return &SeriesForecast{Key: key, Actuals: points, Forecast: forecast}
}

// ForecastAll forecasts every series in deterministic key order and reports
// progress per series, with skipped set for series that were too short.
func ForecastAll(series map[SeriesKey][]MonthlyPoint, progress func(key SeriesKey, skipped bool)) []SeriesForecast {
	keys := make([]SeriesKey, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.SalesName != b.SalesName {
			return a.SalesName < b.SalesName
		}
		if a.CustomerName != b.CustomerName {
			return a.CustomerName < b.CustomerName
		}
		return a.ItemName < b.ItemName
	})

	var results []SeriesForecast
	for _, key := range keys {
		result := ForecastSeries(key, series[key])
		if result == nil {
			if progress != nil {
				progress(key, true)
			}
			continue
		}
		results = append(results, *result)
		if progress != nil {
			progress(key, false)
		}
	}
	return results
}
