package forecast

import "errors"

var (
	ErrRunNotFound = errors.New("forecast run not found")

	// ErrNoAnchor indicates the treasury model has no filed liquidity
	// balance to start from.
	ErrNoAnchor = errors.New("no liquidity anchor stored")
)
