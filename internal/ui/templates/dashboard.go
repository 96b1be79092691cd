// Package templates holds the dashboard page components. Edit
// dashboard.templ and run templ generate; dashboard_templ.go is checked in.
package templates

const (
	Title    = "Fizzy POS Reports"
	Subtitle = "Sales, payments and staff performance across outlets"
)

type panelSpec struct {
	ID      string
	Heading string
	Stream  string
}

var panels = []panelSpec{
	{ID: "summary-content", Heading: "Sales Summary", Stream: "/sse/metrics"},
	{ID: "items-content", Heading: "Top 10 Items by Revenue", Stream: "/sse/top-items"},
}

// pollExpr is the datastar action that refreshes a panel from its stream.
func pollExpr(stream string) string {
	return "@get('" + stream + "')"
}
