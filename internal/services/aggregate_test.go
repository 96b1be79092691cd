package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech17x/fizzyadmin-sub000/internal/models"
)

const epsilon = 1e-9

var fixedNow = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func testAggregator() Aggregator {
	return Aggregator{
		Now:      func() time.Time { return fixedNow },
		Location: time.UTC,
	}
}

func ms(t time.Time) []float64 {
	return []float64{float64(t.UnixMilli())}
}

func sampleReports() []models.DayReport {
	morning := time.Date(2024, 3, 9, 9, 15, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 9, 19, 45, 0, 0, time.UTC)
	nextDay := time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC)

	return []models.DayReport{
		{
			OutletName: "Downtown",
			Orders: []models.Order{
				{
					ID:           "o1",
					Status:       models.StatusSettle,
					OrderType:    &models.NamedRef{Name: "Dine In"},
					Customer:     &models.NamedRef{Name: "  Alice "},
					CounterStaff: &models.NamedRef{Name: "Sam"},
					Summary:      models.Summary{Subtotal: 20, Tax: 2, Discount: 1},
					PaymentInfo: models.PaymentInfo{
						OrderTotal: 21, Tip: 2, GrandTotal: 23,
						Payments: []models.Payment{{TypeName: "Cash", Amount: 10}, {TypeName: "Card", Amount: 13}},
					},
					Items: []models.Item{
						{Name: "Burger", CategoryName: "Mains", Quantity: 1, TotalPrice: 12},
						{Name: "Soda", CategoryName: "Drinks", Quantity: 2, TotalPrice: 8},
					},
					KDSAt: ms(morning),
				},
				{
					ID:           "o2",
					Status:       models.StatusRefund,
					RefundAmount: 5,
					OrderType:    &models.NamedRef{Name: "Takeaway"},
					Customer:     &models.NamedRef{Name: "alice"},
					CounterStaff: &models.NamedRef{Name: "Kim"},
					PaymentInfo: models.PaymentInfo{
						OrderTotal: 5,
						Payments:   []models.Payment{{TypeName: "Card", Amount: 5}},
					},
					Items: []models.Item{{Name: "Soda", CategoryName: "Drinks", TotalPrice: 5}},
					KDSAt: ms(evening),
				},
			},
		},
		{
			OutletName: "Airport",
			Orders: []models.Order{
				{
					ID:           "o3",
					Status:       "on-hold",
					Customer:     &models.NamedRef{Name: "Bob"},
					CounterStaff: &models.NamedRef{Name: "Sam"},
					Summary:      models.Summary{Discount: 2},
					PaymentInfo:  models.PaymentInfo{OrderTotal: 40},
					Items:        []models.Item{{Name: "Steak", CategoryName: "Mains", Quantity: 1, TotalPrice: 40}},
					KDSAt:        ms(nextDay),
				},
				{
					ID:     "o4",
					Status: models.StatusCancelled,
				},
			},
		},
	}
}

func TestAggregate_SingleOrder(t *testing.T) {
	reports := []models.DayReport{{
		OutletName: "Main",
		Orders: []models.Order{{
			Status:      models.StatusSettle,
			PaymentInfo: models.PaymentInfo{OrderTotal: 10, Tip: 1},
			Summary:     models.Summary{Tax: 1, Discount: 0},
			Items:       []models.Item{{Name: "Soda", CategoryName: "Drinks", Quantity: 2, TotalPrice: 10}},
		}},
	}}

	m := testAggregator().Aggregate(reports)

	assert.Equal(t, 1, m.TotalOrders)
	assert.Equal(t, 10.0, m.TotalRevenue)
	assert.Equal(t, 1.0, m.TotalTips)
	assert.Equal(t, []models.ItemSales{{Name: "Soda", Quantity: 2, Revenue: 10}}, m.TopItems)
}

func TestAggregate_Totals(t *testing.T) {
	m := testAggregator().Aggregate(sampleReports())

	assert.Equal(t, 4, m.TotalOrders)
	assert.InDelta(t, 66, m.TotalRevenue, epsilon)
	assert.InDelta(t, 2, m.TotalTax, epsilon)
	assert.InDelta(t, 2, m.TotalTips, epsilon)
	assert.InDelta(t, 3, m.TotalDiscounts, epsilon)
	assert.InDelta(t, 5, m.TotalRefunds, epsilon)
	assert.InDelta(t, 20, m.TotalSubtotal, epsilon)
	assert.InDelta(t, 23, m.TotalGrandTotal, epsilon)
	assert.Equal(t, 1, m.RefundCount)
	assert.InDelta(t, 66.0/4, m.AverageOrderValue, epsilon)
	assert.InDelta(t, 66-5-3, m.NetRevenue, epsilon)
	// Soda with quantity 0 counts as one unit.
	assert.InDelta(t, 5, m.TotalItemsSold, epsilon)
}

func TestAggregate_Breakdowns(t *testing.T) {
	m := testAggregator().Aggregate(sampleReports())

	assert.Equal(t, 2, m.UniqueCustomers, "alice is deduplicated case-insensitively after trimming")
	assert.Equal(t, map[string]float64{"Cash": 10, "Card": 18}, m.PaymentMethods)
	assert.Equal(t, map[string]int{"settle": 1, "refund": 1, "on-hold": 1, "cancelled": 1}, m.OrderStatuses)
	assert.Equal(t, map[string]int{"Dine In": 1, "Takeaway": 1}, m.OrderTypes)

	assert.Equal(t, []models.ItemSales{
		{Name: "Steak", Quantity: 1, Revenue: 40},
		{Name: "Soda", Quantity: 3, Revenue: 13},
		{Name: "Burger", Quantity: 1, Revenue: 12},
	}, m.TopItems)
	assert.Equal(t, []models.ItemSales{
		{Name: "Mains", Quantity: 2, Revenue: 52},
		{Name: "Drinks", Quantity: 3, Revenue: 13},
	}, m.TopCategories)

	assert.Equal(t, []models.StaffSales{
		{Name: "Sam", Orders: 2, Revenue: 61},
		{Name: "Kim", Orders: 1, Revenue: 5},
	}, m.StaffPerformance)

	assert.Equal(t, map[string]models.OutletPerformance{
		"Downtown": {Orders: 2, Revenue: 26, Customers: 1},
		"Airport":  {Orders: 2, Revenue: 40, Customers: 1},
	}, m.OutletPerformance)
}

func TestAggregate_TimeBuckets(t *testing.T) {
	m := testAggregator().Aggregate(sampleReports())

	assert.InDelta(t, 21+40, m.HourlyRevenue[9], epsilon)
	assert.InDelta(t, 5, m.HourlyRevenue[19], epsilon)
	// o4 has no kds_at and lands on the clock's hour with zero revenue.
	assert.Equal(t, 1, m.UntimedOrders)
	assert.Equal(t, map[string]float64{
		"2024-03-09": 26,
		"2024-03-10": 40,
	}, m.DailyRevenue)

	var sum float64
	for _, v := range m.HourlyRevenue {
		sum += v
	}
	assert.InDelta(t, m.TotalRevenue, sum, epsilon)
}

func TestAggregate_LocationShiftsBuckets(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	ts := time.Date(2024, 3, 9, 21, 0, 0, 0, time.UTC)
	reports := []models.DayReport{{Orders: []models.Order{{
		PaymentInfo: models.PaymentInfo{OrderTotal: 7},
		KDSAt:       ms(ts),
	}}}}

	m := Aggregator{Location: loc}.Aggregate(reports)

	assert.InDelta(t, 7, m.HourlyRevenue[2], epsilon)
	assert.Equal(t, map[string]float64{"2024-03-10": 7}, m.DailyRevenue)
}

// Orders without kds_at are bucketed at the aggregation clock, so hourly
// and daily revenue for them is nondeterministic across runs.
func TestAggregate_MissingTimestamp_Nondeterministic(t *testing.T) {
	reports := []models.DayReport{{Orders: []models.Order{{
		PaymentInfo: models.PaymentInfo{OrderTotal: 12},
	}}}}

	m := testAggregator().Aggregate(reports)
	assert.Equal(t, 1, m.UntimedOrders)
	assert.InDelta(t, 12, m.HourlyRevenue[15], epsilon)
	assert.Equal(t, map[string]float64{"2024-03-10": 12}, m.DailyRevenue)

	later := Aggregator{
		Now:      func() time.Time { return fixedNow.Add(26 * time.Hour) },
		Location: time.UTC,
	}.Aggregate(reports)
	assert.InDelta(t, 12, later.HourlyRevenue[17], epsilon)
	assert.Equal(t, map[string]float64{"2024-03-11": 12}, later.DailyRevenue)
}

func TestAggregate_NullTimestampUsesClock(t *testing.T) {
	reports, err := models.DecodeDayReports([]byte(`[
		{"orders": [
			{"paymentInfo": {"orderTotal": 9}, "kds_at": [null]},
			{"paymentInfo": {"orderTotal": 3}, "kds_at": [0]}
		]}
	]`))
	require.NoError(t, err)

	m := testAggregator().Aggregate(reports)
	assert.Equal(t, 2, m.UntimedOrders)
	assert.Equal(t, map[string]float64{"2024-03-10": 12}, m.DailyRevenue)
	assert.InDelta(t, 12, m.HourlyRevenue[15], epsilon)
	assert.Zero(t, m.HourlyRevenue[0])
}

func TestAggregate_Empty(t *testing.T) {
	for _, reports := range [][]models.DayReport{nil, {}, {{OutletName: "Empty"}}} {
		m := Aggregate(reports)

		assert.Equal(t, 0, m.TotalOrders)
		assert.Equal(t, 0.0, m.AverageOrderValue)
		assert.False(t, math.IsNaN(m.AverageOrderValue))
		assert.NotNil(t, m.TopItems)
		assert.NotNil(t, m.TopCategories)
		assert.NotNil(t, m.StaffPerformance)
		assert.Empty(t, m.OutletPerformance)
		assert.Empty(t, m.PaymentMethods)
	}
}

func TestAggregate_RefundsOnlyFromRefundStatus(t *testing.T) {
	reports := []models.DayReport{{Orders: []models.Order{
		{Status: models.StatusSettle, RefundAmount: 100, KDSAt: ms(fixedNow)},
		{Status: models.StatusCancelled, RefundAmount: 50, KDSAt: ms(fixedNow)},
		{Status: models.StatusPending, RefundAmount: 25, KDSAt: ms(fixedNow)},
	}}}

	m := testAggregator().Aggregate(reports)

	assert.Equal(t, 0.0, m.TotalRefunds)
	assert.Equal(t, 0, m.RefundCount)
}

func TestAggregate_Invariants(t *testing.T) {
	m := testAggregator().Aggregate(sampleReports())

	var statusTotal int
	for _, n := range m.OrderStatuses {
		statusTotal += n
	}
	assert.Equal(t, m.TotalOrders, statusTotal)
	assert.InDelta(t, m.TotalRevenue-m.TotalRefunds-m.TotalDiscounts, m.NetRevenue, epsilon)
}

func TestAggregate_NetRevenueMayBeNegative(t *testing.T) {
	reports := []models.DayReport{{Orders: []models.Order{{
		Status:       models.StatusRefund,
		RefundAmount: 30,
		Summary:      models.Summary{Discount: 5},
		PaymentInfo:  models.PaymentInfo{OrderTotal: 10},
		KDSAt:        ms(fixedNow),
	}}}}

	m := testAggregator().Aggregate(reports)
	assert.InDelta(t, -25, m.NetRevenue, epsilon)
}

func TestAggregate_TopListsAreLimitedAndStable(t *testing.T) {
	var orders []models.Order
	for i := 0; i < 12; i++ {
		name := string(rune('A' + i))
		orders = append(orders, models.Order{
			CounterStaff: &models.NamedRef{Name: "staff-" + name},
			PaymentInfo:  models.PaymentInfo{OrderTotal: 10},
			Items:        []models.Item{{Name: "item-" + name, CategoryName: "cat-" + name, Quantity: 1, TotalPrice: 10}},
			KDSAt:        ms(fixedNow),
		})
	}

	m := testAggregator().Aggregate([]models.DayReport{{OutletName: "X", Orders: orders}})

	require.Len(t, m.TopItems, 10)
	require.Len(t, m.TopCategories, 8)
	require.Len(t, m.StaffPerformance, 5)
	for i, item := range m.TopItems {
		assert.Equal(t, "item-"+string(rune('A'+i)), item.Name, "equal revenue keeps insertion order")
	}
	assert.Equal(t, "staff-A", m.StaffPerformance[0].Name)
	assert.Equal(t, "staff-E", m.StaffPerformance[4].Name)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	reports := sampleReports()
	before := sampleReports()

	_ = testAggregator().Aggregate(reports)

	assert.Equal(t, before, reports)
}

func BenchmarkAggregate(b *testing.B) {
	reports := make([]models.DayReport, 30)
	for i := range reports {
		orders := make([]models.Order, 200)
		for j := range orders {
			orders[j] = models.Order{
				Status:       models.StatusSettle,
				Customer:     &models.NamedRef{Name: "customer"},
				CounterStaff: &models.NamedRef{Name: "staff"},
				PaymentInfo:  models.PaymentInfo{OrderTotal: float64(j), Payments: []models.Payment{{TypeName: "Cash", Amount: float64(j)}}},
				Items:        []models.Item{{Name: "item", CategoryName: "cat", Quantity: 1, TotalPrice: float64(j)}},
				KDSAt:        ms(fixedNow),
			}
		}
		reports[i] = models.DayReport{OutletName: "outlet", Orders: orders}
	}
	agg := testAggregator()

	b.ResetTimer()
	for b.Loop() {
		_ = agg.Aggregate(reports)
	}
}
