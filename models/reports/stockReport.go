package reports

import (
	"sort"
	"strings"
	"time"

	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/shopspring/decimal"
)

// UnknownTypeName groups inventory whose lobster type id no longer resolves
// against the reference data. The quantity still counts toward the total.
const UnknownTypeName = "Unknown"

const monthLabelFormat = "2006-Jan"

type WeightClassLine struct {
	WeightRange string `json:"weight_range"`
	Quantity    int    `json:"quantity"`
}

type TypeStock struct {
	TypeName  string             `json:"type_name"`
	Total     int                `json:"total"`
	Breakdown []*WeightClassLine `json:"breakdown"`
}

type MonthlyStockDetail struct {
	Month    string `json:"month"`
	Incoming int    `json:"incoming"`
	Outgoing int    `json:"outgoing"`
}

type TypeDistribution struct {
	TypeName string `json:"type_name"`
	Quantity int    `json:"quantity"`
}

// DashboardSnapshot is the full derived state behind the dashboard: every
// card and chart renders from one of these, never from raw rows.
type DashboardSnapshot struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	TotalStock         int                   `json:"total_stock"`
	StockByType        []*TypeStock          `json:"stock_by_type"`
	MonthlySeries      []*MonthlyStockDetail `json:"monthly_series"`
	DistributionByType []*TypeDistribution   `json:"distribution_by_type"`
	MonthIncoming      int                   `json:"month_incoming"`
	MonthOutgoing      int                   `json:"month_outgoing"`
	EstimatedBiomassKg decimal.Decimal       `json:"estimated_biomass_kg"`
}

// TotalStock sums on-hand quantity across every inventory row.
func TotalStock(rows []*models.InventoryRow) int {
	total := 0
	for _, row := range rows {
		total += row.Quantity
	}
	return total
}

// StockByType partitions inventory rows by resolved lobster type name. Rows
// whose type id is missing from the reference map land under "Unknown" so the
// per-type totals always partition TotalStock exactly. Zero-quantity breakdown
// lines are kept; display callers filter them.
//
// Ordered by total descending, name ascending on ties, "Unknown" last.
func StockByType(rows []*models.InventoryRow, typeNames map[int]string, weightRanges map[int]string) []*TypeStock {
	byName := make(map[string]*TypeStock)
	// weight ranges can collide inside a group (several unresolved type ids),
	// so breakdown lines merge by range label
	lines := make(map[string]map[string]int)

	for _, row := range rows {
		name, ok := typeNames[row.LobsterTypeId]
		if !ok || name == "" {
			name = UnknownTypeName
		}
		entry, ok := byName[name]
		if !ok {
			entry = &TypeStock{TypeName: name}
			byName[name] = entry
			lines[name] = make(map[string]int)
		}
		entry.Total += row.Quantity

		weightRange, ok := weightRanges[row.WeightClassId]
		if !ok || weightRange == "" {
			weightRange = UnknownTypeName
		}
		lines[name][weightRange] += row.Quantity
	}

	results := make([]*TypeStock, 0, len(byName))
	for name, entry := range byName {
		for weightRange, quantity := range lines[name] {
			entry.Breakdown = append(entry.Breakdown, &WeightClassLine{
				WeightRange: weightRange,
				Quantity:    quantity,
			})
		}
		sort.Slice(entry.Breakdown, func(i, j int) bool {
			return entry.Breakdown[i].WeightRange < entry.Breakdown[j].WeightRange
		})
		results = append(results, entry)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if (a.TypeName == UnknownTypeName) != (b.TypeName == UnknownTypeName) {
			return b.TypeName == UnknownTypeName
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.TypeName < b.TypeName
	})
	return results
}

// MonthlySeries folds transactions into exactly six consecutive calendar
// months ending at now's month, oldest first. Bucketing is by the (year,
// month) of transaction_date; a transaction outside the window is dropped.
// Incoming counts ADD quantity, outgoing counts the magnitude of every
// depleting type.
func MonthlySeries(txns []*models.Transaction, now time.Time) []*MonthlyStockDetail {
	series := make([]*MonthlyStockDetail, 0, 6)
	index := make(map[string]*MonthlyStockDetail, 6)

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)
	for i := 0; i < 6; i++ {
		month := first.AddDate(0, i, 0)
		detail := &MonthlyStockDetail{Month: month.Format(monthLabelFormat)}
		series = append(series, detail)
		index[monthKey(month)] = detail
	}

	for _, txn := range txns {
		detail, ok := index[monthKey(txn.TransactionDate)]
		if !ok {
			continue
		}
		if txn.TransactionType.IsOutgoing() {
			detail.Outgoing += txn.Quantity
		} else if txn.TransactionType == models.TransactionTypeAdd {
			detail.Incoming += txn.Quantity
		}
	}

	return series
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DistributionByType sums all-time outgoing quantity per resolved type name,
// largest first.
func DistributionByType(txns []*models.Transaction, typeNames map[int]string) []*TypeDistribution {
	byName := make(map[string]*TypeDistribution)

	for _, txn := range txns {
		if !txn.TransactionType.IsOutgoing() {
			continue
		}
		name, ok := typeNames[txn.LobsterTypeId]
		if !ok || name == "" {
			name = UnknownTypeName
		}
		entry, ok := byName[name]
		if !ok {
			entry = &TypeDistribution{TypeName: name}
			byName[name] = entry
		}
		entry.Quantity += txn.Quantity
	}

	results := make([]*TypeDistribution, 0, len(byName))
	for _, entry := range byName {
		results = append(results, entry)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Quantity != results[j].Quantity {
			return results[i].Quantity > results[j].Quantity
		}
		return results[i].TypeName < results[j].TypeName
	})
	return results
}

// MonthTotals returns incoming/outgoing restricted to now's calendar month.
func MonthTotals(txns []*models.Transaction, now time.Time) (incoming int, outgoing int) {
	key := monthKey(now)
	for _, txn := range txns {
		if monthKey(txn.TransactionDate) != key {
			continue
		}
		if txn.TransactionType.IsOutgoing() {
			outgoing += txn.Quantity
		} else if txn.TransactionType == models.TransactionTypeAdd {
			incoming += txn.Quantity
		}
	}
	return incoming, outgoing
}

// EstimatedBiomassKg estimates live weight from on-hand counts: quantity
// times the midpoint of the weight_range label (grams), summed and converted
// to kilograms. Rows whose range label does not parse as "lo-hi" are skipped
// rather than guessed at.
func EstimatedBiomassKg(rows []*models.InventoryRow, weightRanges map[int]string) decimal.Decimal {
	grams := decimal.Zero
	for _, row := range rows {
		label, ok := weightRanges[row.WeightClassId]
		if !ok {
			continue
		}
		midpoint, ok := rangeMidpointGrams(label)
		if !ok {
			continue
		}
		grams = grams.Add(midpoint.Mul(decimal.NewFromInt(int64(row.Quantity))))
	}
	return grams.Div(decimal.NewFromInt(1000))
}

func rangeMidpointGrams(label string) (decimal.Decimal, bool) {
	parts := strings.SplitN(strings.TrimSpace(label), "-", 2)
	if len(parts) != 2 {
		return decimal.Zero, false
	}
	lo, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return decimal.Zero, false
	}
	hi, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return decimal.Zero, false
	}
	return lo.Add(hi).Div(decimal.NewFromInt(2)), true
}

// BuildDashboardSnapshot assembles the derived dashboard state from one
// consistent set of fetched rows. Pure: inputs are never mutated.
func BuildDashboardSnapshot(
	inventory []*models.InventoryRow,
	monthTxns []*models.Transaction,
	outgoingTxns []*models.Transaction,
	sixMonthTxns []*models.Transaction,
	typeNames map[int]string,
	weightRanges map[int]string,
	now time.Time,
) *DashboardSnapshot {
	incoming, outgoing := MonthTotals(monthTxns, now)
	return &DashboardSnapshot{
		GeneratedAt:        now,
		TotalStock:         TotalStock(inventory),
		StockByType:        StockByType(inventory, typeNames, weightRanges),
		MonthlySeries:      MonthlySeries(sixMonthTxns, now),
		DistributionByType: DistributionByType(outgoingTxns, typeNames),
		MonthIncoming:      incoming,
		MonthOutgoing:      outgoing,
		EstimatedBiomassKg: EstimatedBiomassKg(inventory, weightRanges),
	}
}
