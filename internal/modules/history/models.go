package history

import "time"

// DailyBar is one day of OHLC data for a marked asset. Open, high and low may
// be missing for sparse sources; close is always present.
type DailyBar struct {
	Day   time.Time `json:"day"`
	Open  *float64  `json:"open,omitempty"`
	High  *float64  `json:"high,omitempty"`
	Low   *float64  `json:"low,omitempty"`
	Close float64   `json:"close"`
}

// HLC reports the bar's high, low and close, substituting close for missing
// high/low values.
func (b DailyBar) HLC() (high, low, close float64) {
	high, low, close = b.Close, b.Close, b.Close
	if b.High != nil {
		high = *b.High
	}
	if b.Low != nil {
		low = *b.Low
	}
	return high, low, close
}

// ConsolidatedRow holds one quarter's consolidated statement lines as filed.
// Lines below operating income are nullable because some quarters are loaded
// sales-only.
type ConsolidatedRow struct {
	Quarter        string   `json:"quarter"`
	NetSales       float64  `json:"net_sales"`
	CostOfSales    float64  `json:"cost_of_sales"`
	SGA            float64  `json:"sga"`
	Impairments    float64  `json:"impairments"`
	InterestIncome *float64 `json:"interest_income,omitempty"`
	PretaxIncome   *float64 `json:"pretax_income,omitempty"`
	TaxExpense     *float64 `json:"tax_expense,omitempty"`
	NetIncome      *float64 `json:"net_income,omitempty"`
	BasicShares    *float64 `json:"basic_shares,omitempty"`
	DilutedShares  *float64 `json:"diluted_shares,omitempty"`
}
