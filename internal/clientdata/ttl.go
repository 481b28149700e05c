package clientdata

import "time"

// TTL constants per feed. Added to time.Now() when storing to calculate
// expires_at.
const (
	// Benchmark fixings publish once per business day.
	TTLRateFixings = 24 * time.Hour
)
