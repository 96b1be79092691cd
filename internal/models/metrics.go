package models

// Metrics is the dashboard rollup of a set of day reports. Every field is
// plain JSON so chart and table consumers can read it without decoding help.
type Metrics struct {
	TotalOrders       int                          `json:"totalOrders"`
	TotalRevenue      float64                      `json:"totalRevenue"`
	TotalTax          float64                      `json:"totalTax"`
	TotalTips         float64                      `json:"totalTips"`
	TotalDiscounts    float64                      `json:"totalDiscounts"`
	TotalRefunds      float64                      `json:"totalRefunds"`
	TotalSubtotal     float64                      `json:"totalSubtotal"`
	TotalGrandTotal   float64                      `json:"totalGrandTotal"`
	TotalItemsSold    float64                      `json:"totalItemsSold"`
	RefundCount       int                          `json:"refundCount"`
	UniqueCustomers   int                          `json:"uniqueCustomers"`
	PaymentMethods    map[string]float64           `json:"paymentMethods"`
	OrderStatuses     map[string]int               `json:"orderStatuses"`
	OrderTypes        map[string]int               `json:"orderTypes"`
	TopItems          []ItemSales                  `json:"topItems"`
	TopCategories     []ItemSales                  `json:"topCategories"`
	HourlyRevenue     [24]float64                  `json:"hourlyRevenue"`
	DailyRevenue      map[string]float64           `json:"dailyRevenue"`
	StaffPerformance  []StaffSales                 `json:"staffPerformance"`
	OutletPerformance map[string]OutletPerformance `json:"outletPerformance"`
	AverageOrderValue float64                      `json:"averageOrderValue"`
	NetRevenue        float64                      `json:"netRevenue"`

	// UntimedOrders counts orders without a kds_at timestamp. Their hourly and
	// daily buckets were taken from the aggregation clock, so those two series
	// are not reproducible across runs while this is non-zero.
	UntimedOrders int `json:"untimedOrders"`
}

type ItemSales struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type StaffSales struct {
	Name    string  `json:"name"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type OutletPerformance struct {
	Orders    int     `json:"orders"`
	Revenue   float64 `json:"revenue"`
	Customers int     `json:"customers"`
}
