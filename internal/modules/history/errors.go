package history

import "errors"

// Typed errors for missing inputs. Forecast components treat these as hard
// failures: a projection without its prior-year base is not a forecast.
var (
	// ErrMissingQuarter indicates a quarter has no row for the requested
	// region or is absent from the fiscal calendar entirely.
	ErrMissingQuarter = errors.New("quarter not found in history")

	// ErrNoLiquidityAnchor indicates a quarter has no quarter-end cash figure.
	ErrNoLiquidityAnchor = errors.New("no liquidity anchor for quarter")

	// ErrNoPrices indicates no price rows exist for a symbol in the
	// requested range.
	ErrNoPrices = errors.New("no prices for symbol")
)
