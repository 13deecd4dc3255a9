package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dashboard-backend/internal/rates"
)

const (
	// Amounts below this value in the customer chart are assumed to be USD
	// and converted, everything above is already IDR.
	usdAmountThreshold = 10000

	topCustomerCount    = 5
	topCityCount        = 10
	topItemCount        = 10
	topSalespersonCount = 10
)

type CustomerStat struct {
	CustomerName string  `json:"customer_name"`
	Quantity     float64 `json:"quantity"`
	AmountIDR    float64 `json:"amount_idr"`
}

type CityStat struct {
	City          string `json:"city"`
	ShipmentCount int    `json:"shipment_count"`
}

type ItemStat struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
}

type SalespersonStat struct {
	SalesName string  `json:"sales_name"`
	Quantity  float64 `json:"quantity"`
	AmountIDR float64 `json:"amount_idr"`
}

type MonthlyRevenuePoint struct {
	Month     string  `json:"month"`
	AmountIDR float64 `json:"amount_idr"`
}

type QuarterActivity struct {
	Quarter           string   `json:"quarter"`
	ActiveCustomers   []string `json:"active_customers"`
	InactiveCustomers []string `json:"inactive_customers"`
}

type DashboardSummary struct {
	TopCustomersByQuantity []CustomerStat        `json:"top_customers_by_quantity"`
	TopCustomersByValue    []CustomerStat        `json:"top_customers_by_value"`
	TopCities              []CityStat            `json:"top_cities"`
	TopItems               []ItemStat            `json:"top_items"`
	TopSalespeople         []SalespersonStat     `json:"top_salespeople"`
	MonthlyRevenue         []MonthlyRevenuePoint `json:"monthly_revenue"`
	QuarterlyActivity      []QuarterActivity     `json:"quarterly_activity"`
}

// Summarizer computes the dashboard aggregates for a parsed workbook.
type Summarizer struct {
	rates rates.Provider
}

func NewSummarizer(usdToIDR float64) *Summarizer {
	return &Summarizer{rates: rates.StaticProvider{Rate: usdToIDR}}
}

func NewSummarizerWithRates(provider rates.Provider) *Summarizer {
	return &Summarizer{rates: provider}
}

// convertByCurrency converts an amount to IDR using the row's currency label.
// Unknown currencies pass through unchanged.
func convertByCurrency(amount float64, currency string, usdToIDR float64) float64 {
	if currency == "US Dollar" {
		return amount * usdToIDR
	}
	return amount
}

// convertByMagnitude mimics the customer-value chart rule: small amounts are
// assumed to be USD and scaled, larger ones are already IDR.
func convertByMagnitude(amount float64, usdToIDR float64) float64 {
	if amount < usdAmountThreshold {
		return amount * usdToIDR
	}
	return amount
}

func (s *Summarizer) Summarize(ctx context.Context, table *SalesTable) *DashboardSummary {
	usdToIDR := s.rates.USDToIDR(ctx)

	return &DashboardSummary{
		TopCustomersByQuantity: topCustomers(table, byQuantity, usdToIDR),
		TopCustomersByValue:    topCustomers(table, byValue, usdToIDR),
		TopCities:              topCities(table),
		TopItems:               topItems(table),
		TopSalespeople:         topSalespeople(table, usdToIDR),
		MonthlyRevenue:         monthlyRevenue(table, usdToIDR),
		QuarterlyActivity:      quarterlyActivity(table),
	}
}

type customerRanking int

const (
	byQuantity customerRanking = iota
	byValue
)

func topCustomers(table *SalesTable, ranking customerRanking, usdToIDR float64) []CustomerStat {
	totals := make(map[string]*CustomerStat)
	for _, row := range table.Rows {
		stat, ok := totals[row.CustomerName]
		if !ok {
			stat = &CustomerStat{CustomerName: row.CustomerName}
			totals[row.CustomerName] = stat
		}
		stat.Quantity += row.Quantity
		stat.AmountIDR += convertByMagnitude(row.Amount, usdToIDR)
	}

	stats := make([]CustomerStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if ranking == byQuantity {
			if stats[i].Quantity != stats[j].Quantity {
				return stats[i].Quantity > stats[j].Quantity
			}
		} else {
			if stats[i].AmountIDR != stats[j].AmountIDR {
				return stats[i].AmountIDR > stats[j].AmountIDR
			}
		}
		return stats[i].CustomerName < stats[j].CustomerName
	})

	return truncate(stats, topCustomerCount)
}

func topCities(table *SalesTable) []CityStat {
	if !table.HasCities {
		return nil
	}

	documents := make(map[string]map[string]struct{})
	for _, row := range table.Rows {
		if row.City == "" {
			continue
		}
		if documents[row.City] == nil {
			documents[row.City] = make(map[string]struct{})
		}
		documents[row.City][row.DocumentNumber] = struct{}{}
	}

	stats := make([]CityStat, 0, len(documents))
	for city, docs := range documents {
		stats = append(stats, CityStat{City: city, ShipmentCount: len(docs)})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].ShipmentCount != stats[j].ShipmentCount {
			return stats[i].ShipmentCount > stats[j].ShipmentCount
		}
		return stats[i].City < stats[j].City
	})

	return truncate(stats, topCityCount)
}

func topItems(table *SalesTable) []ItemStat {
	totals := make(map[string]float64)
	for _, row := range table.Rows {
		totals[row.ItemName] += row.Quantity
	}

	stats := make([]ItemStat, 0, len(totals))
	for item, quantity := range totals {
		stats = append(stats, ItemStat{ItemName: item, Quantity: quantity})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Quantity != stats[j].Quantity {
			return stats[i].Quantity > stats[j].Quantity
		}
		return stats[i].ItemName < stats[j].ItemName
	})

	return truncate(stats, topItemCount)
}

func topSalespeople(table *SalesTable, usdToIDR float64) []SalespersonStat {
	if !table.HasSalesNames {
		return nil
	}

	totals := make(map[string]*SalespersonStat)
	for _, row := range table.Rows {
		if row.SalesName == "" {
			continue
		}
		stat, ok := totals[row.SalesName]
		if !ok {
			stat = &SalespersonStat{SalesName: row.SalesName}
			totals[row.SalesName] = stat
		}
		stat.Quantity += row.Quantity
		stat.AmountIDR += convertByCurrency(row.Amount, row.Currency, usdToIDR)
	}

	stats := make([]SalespersonStat, 0, len(totals))
	for _, stat := range totals {
		stats = append(stats, *stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AmountIDR != stats[j].AmountIDR {
			return stats[i].AmountIDR > stats[j].AmountIDR
		}
		return stats[i].SalesName < stats[j].SalesName
	})

	return truncate(stats, topSalespersonCount)
}

func monthlyRevenue(table *SalesTable, usdToIDR float64) []MonthlyRevenuePoint {
	totals := make(map[string]float64)
	for _, row := range table.Rows {
		month := row.Date.Format("2006-01")
		totals[month] += convertByCurrency(row.Amount, row.Currency, usdToIDR)
	}

	points := make([]MonthlyRevenuePoint, 0, len(totals))
	for month, amount := range totals {
		points = append(points, MonthlyRevenuePoint{Month: month, AmountIDR: amount})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })

	return points
}

func quarterlyActivity(table *SalesTable) []QuarterActivity {
	perQuarter := make(map[string]map[string]struct{})
	for _, row := range table.Rows {
		quarter := quarterLabel(row.Date)
		if perQuarter[quarter] == nil {
			perQuarter[quarter] = make(map[string]struct{})
		}
		perQuarter[quarter][row.CustomerName] = struct{}{}
	}

	quarters := make([]string, 0, len(perQuarter))
	for quarter := range perQuarter {
		quarters = append(quarters, quarter)
	}
	sort.Strings(quarters)

	seen := make(map[string]struct{})
	activity := make([]QuarterActivity, 0, len(quarters))
	for _, quarter := range quarters {
		active := perQuarter[quarter]
		for customer := range active {
			seen[customer] = struct{}{}
		}

		var inactive []string
		for customer := range seen {
			if _, ok := active[customer]; !ok {
				inactive = append(inactive, customer)
			}
		}

		activity = append(activity, QuarterActivity{
			Quarter:           quarter,
			ActiveCustomers:   sortedKeys(active),
			InactiveCustomers: sortedStrings(inactive),
		})
	}

	return activity
}

func quarterLabel(t time.Time) string {
	return fmt.Sprintf("%dQ%d", t.Year(), (int(t.Month())-1)/3+1)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func sortedStrings(values []string) []string {
	sort.Strings(values)
	return values
}

func truncate[T any](values []T, limit int) []T {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}
