package services

import (
	"slices"
	"strings"
	"time"

	"github.com/tech17x/fizzyadmin-sub000/internal/models"
)

const (
	topItemsLimit      = 10
	topCategoriesLimit = 8
	topStaffLimit      = 5
	dayKeyLayout       = "2006-01-02"
)

// Aggregator reduces day reports into dashboard metrics. The zero value is
// ready to use: it reads the wall clock and buckets in the local zone.
//
// Orders without a usable kds_at (absent, empty, or a leading null or 0) are
// bucketed at Now(), so hourly and daily revenue
// for such orders changes from run to run. Metrics.UntimedOrders reports how
// many orders took that path.
type Aggregator struct {
	Now      func() time.Time
	Location *time.Location
}

// Aggregate runs the zero-value Aggregator.
func Aggregate(reports []models.DayReport) models.Metrics {
	return Aggregator{}.Aggregate(reports)
}

// salesGroup keeps first-seen order so equal revenues sort by insertion.
type salesGroup struct {
	index map[string]int
	rows  []models.ItemSales
}

func newSalesGroup() *salesGroup {
	return &salesGroup{index: make(map[string]int)}
}

func (g *salesGroup) add(name string, quantity, revenue float64) {
	i, ok := g.index[name]
	if !ok {
		i = len(g.rows)
		g.index[name] = i
		g.rows = append(g.rows, models.ItemSales{Name: name})
	}
	g.rows[i].Quantity += quantity
	g.rows[i].Revenue += revenue
}

func (g *salesGroup) top(limit int) []models.ItemSales {
	rows := append([]models.ItemSales{}, g.rows...)
	slices.SortStableFunc(rows, func(a, b models.ItemSales) int {
		return compareDesc(a.Revenue, b.Revenue)
	})
	return truncate(rows, limit)
}

type outletGroup struct {
	perf      models.OutletPerformance
	customers map[string]struct{}
}

func (a Aggregator) Aggregate(reports []models.DayReport) models.Metrics {
	now := a.Now
	if now == nil {
		now = time.Now
	}
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}

	m := models.Metrics{
		PaymentMethods:    make(map[string]float64),
		OrderStatuses:     make(map[string]int),
		OrderTypes:        make(map[string]int),
		DailyRevenue:      make(map[string]float64),
		OutletPerformance: make(map[string]models.OutletPerformance),
	}

	customers := make(map[string]struct{})
	items := newSalesGroup()
	categories := newSalesGroup()
	staffIndex := make(map[string]int)
	var staff []models.StaffSales
	outlets := make(map[string]*outletGroup)

	for _, report := range reports {
		for _, order := range report.Orders {
			outlet := outlets[report.OutletName]
			if outlet == nil {
				outlet = &outletGroup{customers: make(map[string]struct{})}
				outlets[report.OutletName] = outlet
			}

			revenue := order.PaymentInfo.OrderTotal

			m.TotalOrders++
			m.TotalRevenue += revenue
			m.TotalTax += order.Summary.Tax
			m.TotalTips += order.PaymentInfo.Tip
			m.TotalDiscounts += order.Summary.Discount
			m.TotalSubtotal += order.Summary.Subtotal
			m.TotalGrandTotal += order.PaymentInfo.GrandTotal
			if order.Status == models.StatusRefund {
				m.TotalRefunds += order.RefundAmount
				m.RefundCount++
			}

			customerKey := ""
			if order.Customer != nil {
				customerKey = strings.ToLower(strings.TrimSpace(order.Customer.Name))
			}
			if customerKey != "" {
				customers[customerKey] = struct{}{}
				outlet.customers[customerKey] = struct{}{}
			}

			for _, p := range order.PaymentInfo.Payments {
				m.PaymentMethods[p.TypeName] += p.Amount
			}

			m.OrderStatuses[string(order.Status)]++
			if order.OrderType != nil && order.OrderType.Name != "" {
				m.OrderTypes[order.OrderType.Name]++
			}

			for _, item := range order.Items {
				qty := item.EffectiveQuantity()
				m.TotalItemsSold += qty
				items.add(item.Name, qty, item.TotalPrice)
				categories.add(item.CategoryName, qty, item.TotalPrice)
			}

			ts, ok := order.Timestamp()
			if !ok {
				ts = now()
				m.UntimedOrders++
			}
			ts = ts.In(loc)
			m.HourlyRevenue[ts.Hour()] += revenue
			m.DailyRevenue[ts.Format(dayKeyLayout)] += revenue

			if order.CounterStaff != nil && order.CounterStaff.Name != "" {
				name := order.CounterStaff.Name
				i, seen := staffIndex[name]
				if !seen {
					i = len(staff)
					staffIndex[name] = i
					staff = append(staff, models.StaffSales{Name: name})
				}
				staff[i].Orders++
				staff[i].Revenue += revenue
			}

			outlet.perf.Orders++
			outlet.perf.Revenue += revenue
		}
	}

	m.UniqueCustomers = len(customers)
	m.TopItems = items.top(topItemsLimit)
	m.TopCategories = categories.top(topCategoriesLimit)

	slices.SortStableFunc(staff, func(a, b models.StaffSales) int {
		return compareDesc(a.Revenue, b.Revenue)
	})
	m.StaffPerformance = truncate(staff, topStaffLimit)
	if m.StaffPerformance == nil {
		m.StaffPerformance = []models.StaffSales{}
	}

	for name, o := range outlets {
		o.perf.Customers = len(o.customers)
		m.OutletPerformance[name] = o.perf
	}

	if m.TotalOrders > 0 {
		m.AverageOrderValue = m.TotalRevenue / float64(m.TotalOrders)
	}
	m.NetRevenue = m.TotalRevenue - m.TotalRefunds - m.TotalDiscounts

	return m
}

func compareDesc(a, b float64) int {
	if a > b {
		return -1
	}
	if a < b {
		return 1
	}
	return 0
}

func truncate[T any](rows []T, limit int) []T {
	if len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
