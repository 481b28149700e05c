// Package domain provides core domain models and types.
package domain

// RegionCode identifies a regional reporting segment
type RegionCode string

const (
	RegionUS RegionCode = "US"
	RegionCA RegionCode = "CA"
	RegionAU RegionCode = "AU"
	RegionEU RegionCode = "EU"
)

// QuarterStatus marks a quarter's line items as reported actuals or forecast
// output. Exactly one status applies per region per quarter.
type QuarterStatus string

const (
	StatusReported QuarterStatus = "reported"
	StatusForecast QuarterStatus = "forecast"
)

// Region represents a regional business unit. Regions partition company net
// sales with no overlap or gap across the active reporting period.
type Region struct {
	Code RegionCode `json:"code"`
	Name string     `json:"name"`
	// DivestedAfter is the key of the last fiscal quarter the region reports
	// results. Empty for active regions. A divested region contributes exactly
	// zero to later periods and is excluded from aggregation, not zeroed.
	DivestedAfter string `json:"divested_after,omitempty"`
}

// ActiveIn reports whether the region still reports results in the given quarter.
func (r Region) ActiveIn(q FiscalQuarter, cal *Calendar) bool {
	if r.DivestedAfter == "" {
		return true
	}
	last, ok := cal.ByKey(r.DivestedAfter)
	if !ok {
		// Unknown divestiture quarter: treat as already divested rather than
		// silently keeping the region alive.
		return false
	}
	return !q.After(last)
}

// QuarterFinancials holds one region's line items for one fiscal quarter.
// All amounts are USD millions.
type QuarterFinancials struct {
	Region      RegionCode    `json:"region"`
	Quarter     FiscalQuarter `json:"quarter"`
	Status      QuarterStatus `json:"status"`
	NetSales    float64       `json:"net_sales"`
	CostOfSales float64       `json:"cost_of_sales"`
	SGA         float64       `json:"sga"`
	Impairments float64       `json:"impairments"`
}

// GrossMargin returns gross profit as a fraction of net sales, or zero when
// there are no sales.
func (f QuarterFinancials) GrossMargin() float64 {
	if f.NetSales == 0 {
		return 0
	}
	return (f.NetSales - f.CostOfSales) / f.NetSales
}
