package reports

import (
	"testing"
	"time"

	"github.com/seaharvest/lobsterstock_backend/models"
	"github.com/shopspring/decimal"
)

var (
	typeNames    = map[int]string{1: "A", 2: "B"}
	weightRanges = map[int]string{1: "100-200", 2: "200-300"}
)

func invRow(typeId, weightClassId, qty int) *models.InventoryRow {
	return &models.InventoryRow{LobsterTypeId: typeId, WeightClassId: weightClassId, Quantity: qty}
}

func txn(typeId int, txnType models.TransactionType, qty int, date time.Time) *models.Transaction {
	return &models.Transaction{
		LobsterTypeId:   typeId,
		WeightClassId:   1,
		TransactionType: txnType,
		Quantity:        qty,
		TransactionDate: date,
	}
}

func TestStockByTypePartitionsTotal(t *testing.T) {
	rows := []*models.InventoryRow{
		invRow(1, 1, 10),
		invRow(1, 2, 5),
		invRow(2, 1, 3),
	}

	if got := TotalStock(rows); got != 18 {
		t.Fatalf("TotalStock = %d, want 18", got)
	}

	byType := StockByType(rows, typeNames, weightRanges)
	if len(byType) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(byType))
	}
	if byType[0].TypeName != "A" || byType[0].Total != 15 {
		t.Fatalf("first group = %s/%d, want A/15", byType[0].TypeName, byType[0].Total)
	}
	if byType[1].TypeName != "B" || byType[1].Total != 3 {
		t.Fatalf("second group = %s/%d, want B/3", byType[1].TypeName, byType[1].Total)
	}

	// group totals must partition the overall total exactly
	sum := 0
	for _, g := range byType {
		sum += g.Total
	}
	if sum != TotalStock(rows) {
		t.Fatalf("group totals sum to %d, total is %d", sum, TotalStock(rows))
	}

	if len(byType[0].Breakdown) != 2 || byType[0].Breakdown[0].WeightRange != "100-200" || byType[0].Breakdown[0].Quantity != 10 {
		t.Fatalf("unexpected breakdown for A: %+v", byType[0].Breakdown[0])
	}
}

func TestStockByTypeUnknownFallback(t *testing.T) {
	rows := []*models.InventoryRow{
		invRow(1, 1, 10),
		invRow(99, 1, 4), // stale type id
		invRow(98, 1, 2), // another stale id, same range
	}

	byType := StockByType(rows, typeNames, weightRanges)
	if len(byType) != 2 {
		t.Fatalf("expected A and Unknown, got %d groups", len(byType))
	}

	// Unknown sorts last regardless of size
	last := byType[len(byType)-1]
	if last.TypeName != UnknownTypeName || last.Total != 6 {
		t.Fatalf("unknown group = %s/%d, want Unknown/6", last.TypeName, last.Total)
	}
	if len(last.Breakdown) != 1 || last.Breakdown[0].Quantity != 6 {
		t.Fatalf("unknown breakdown should merge by range: %+v", last.Breakdown)
	}

	sum := 0
	for _, g := range byType {
		sum += g.Total
	}
	if sum != 16 {
		t.Fatalf("unknown rows must still count: sum = %d, want 16", sum)
	}
}

func TestMonthlySeriesSixBucketsOldestFirst(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	txns := []*models.Transaction{
		txn(1, models.TransactionTypeAdd, 10, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeDistribute, 3, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeDeath, 1, time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)),
		txn(2, models.TransactionTypeAdd, 7, time.Date(2025, time.October, 30, 23, 0, 0, 0, time.UTC)),
		// outside the window, must be dropped
		txn(2, models.TransactionTypeAdd, 100, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)),
	}

	series := MonthlySeries(txns, now)
	if len(series) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(series))
	}
	if series[0].Month != "2025-Oct" || series[5].Month != "2026-Mar" {
		t.Fatalf("window = [%s .. %s], want [2025-Oct .. 2026-Mar]", series[0].Month, series[5].Month)
	}
	if series[0].Incoming != 7 || series[0].Outgoing != 0 {
		t.Fatalf("2025-Oct = %+v, want incoming 7", series[0])
	}
	if series[5].Incoming != 10 || series[5].Outgoing != 4 {
		t.Fatalf("2026-Mar = %+v, want incoming 10 outgoing 4", series[5])
	}
	// empty months stay zeroed, not omitted
	for i := 1; i < 5; i++ {
		if series[i].Incoming != 0 || series[i].Outgoing != 0 {
			t.Fatalf("bucket %s should be empty: %+v", series[i].Month, series[i])
		}
	}
}

func TestMonthlySeriesBucketsByCalendarMonthNotDayWindow(t *testing.T) {
	// Jan 31 and Jan 1 land in the same bucket even though they are 30 days apart.
	now := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	txns := []*models.Transaction{
		txn(1, models.TransactionTypeAdd, 1, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeAdd, 2, time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)),
	}

	series := MonthlySeries(txns, now)
	if series[5].Month != "2026-Jan" || series[5].Incoming != 3 {
		t.Fatalf("2026-Jan = %+v, want incoming 3", series[5])
	}
}

func TestDistributionByType(t *testing.T) {
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	txns := []*models.Transaction{
		txn(1, models.TransactionTypeDistribute, 5, base),
		txn(1, models.TransactionTypeDamaged, 2, base),
		txn(2, models.TransactionTypeDeath, 4, base),
		txn(1, models.TransactionTypeAdd, 50, base), // incoming, ignored
	}

	dist := DistributionByType(txns, typeNames)
	if len(dist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(dist))
	}
	if dist[0].TypeName != "A" || dist[0].Quantity != 7 {
		t.Fatalf("first = %+v, want A/7", dist[0])
	}
	if dist[1].TypeName != "B" || dist[1].Quantity != 4 {
		t.Fatalf("second = %+v, want B/4", dist[1])
	}
}

func TestMonthTotals(t *testing.T) {
	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	txns := []*models.Transaction{
		txn(1, models.TransactionTypeAdd, 10, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeDistribute, 3, time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeDeath, 1, time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)),
		txn(1, models.TransactionTypeAdd, 99, time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)),
	}

	incoming, outgoing := MonthTotals(txns, now)
	if incoming != 10 || outgoing != 4 {
		t.Fatalf("month totals = %d/%d, want 10/4", incoming, outgoing)
	}
}

func TestEstimatedBiomassKg(t *testing.T) {
	rows := []*models.InventoryRow{
		invRow(1, 1, 10), // 10 x 150g
		invRow(1, 2, 4),  // 4 x 250g
		invRow(1, 99, 7), // unknown range, skipped
	}

	got := EstimatedBiomassKg(rows, weightRanges)
	want := decimal.RequireFromString("2.5") // (1500 + 1000) / 1000
	if !got.Equal(want) {
		t.Fatalf("biomass = %s, want %s", got, want)
	}
}

func TestEstimatedBiomassSkipsUnparsableRanges(t *testing.T) {
	rows := []*models.InventoryRow{invRow(1, 3, 10)}
	ranges := map[int]string{3: "jumbo"}

	if got := EstimatedBiomassKg(rows, ranges); !got.Equal(decimal.Zero) {
		t.Fatalf("unparsable range should contribute nothing, got %s", got)
	}
}

func TestBuildDashboardSnapshot(t *testing.T) {
	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	inventory := []*models.InventoryRow{
		invRow(1, 1, 10),
		invRow(1, 2, 5),
		invRow(2, 1, 3),
	}
	monthTxns := []*models.Transaction{
		txn(1, models.TransactionTypeAdd, 10, now),
		txn(1, models.TransactionTypeDistribute, 4, now),
	}
	outgoingTxns := []*models.Transaction{
		txn(1, models.TransactionTypeDistribute, 4, now),
	}

	snapshot := BuildDashboardSnapshot(inventory, monthTxns, outgoingTxns, monthTxns, typeNames, weightRanges, now)
	if snapshot.TotalStock != 18 {
		t.Fatalf("TotalStock = %d, want 18", snapshot.TotalStock)
	}
	if snapshot.MonthIncoming != 10 || snapshot.MonthOutgoing != 4 {
		t.Fatalf("month totals = %d/%d, want 10/4", snapshot.MonthIncoming, snapshot.MonthOutgoing)
	}
	if len(snapshot.MonthlySeries) != 6 {
		t.Fatalf("expected 6 series buckets, got %d", len(snapshot.MonthlySeries))
	}
	if !snapshot.GeneratedAt.Equal(now) {
		t.Fatalf("GeneratedAt = %s, want %s", snapshot.GeneratedAt, now)
	}
}
