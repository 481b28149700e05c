package history

import (
	"fmt"
	"math"
)

// partitionTolerance is the largest acceptable gap, in USD millions, between
// the sum of regional net sales and the consolidated figure. Filings round to
// 0.1, so region rows can drift by a few tenths in aggregate.
const partitionTolerance = 0.5

// PartitionWarning describes a quarter whose regional rows do not sum to the
// consolidated figure. Mismatches are reported, never fatal: the forecast
// still runs on the rows as stored.
type PartitionWarning struct {
	Quarter      string  `json:"quarter"`
	Consolidated float64 `json:"consolidated"`
	RegionalSum  float64 `json:"regional_sum"`
	Delta        float64 `json:"delta"`
}

func (w PartitionWarning) String() string {
	return fmt.Sprintf("quarter %s: regional net sales %.1f != consolidated %.1f (delta %.1f)",
		w.Quarter, w.RegionalSum, w.Consolidated, w.Delta)
}

// CheckPartition compares the sum of regional net sales against the
// consolidated figure for one quarter. Returns nil when they agree within
// tolerance or when the quarter has no consolidated row to compare against.
func (r *Repository) CheckPartition(quarterKey string) (*PartitionWarning, error) {
	consolidated, err := r.Consolidated(quarterKey)
	if err != nil {
		// Nothing to compare against; not a partition failure.
		return nil, nil
	}

	regional, err := r.RegionalByQuarter(quarterKey)
	if err != nil {
		return nil, err
	}

	var sum float64
	for _, f := range regional {
		sum += f.NetSales
	}

	delta := sum - consolidated.NetSales
	if math.Abs(delta) <= partitionTolerance {
		return nil, nil
	}

	warning := &PartitionWarning{
		Quarter:      quarterKey,
		Consolidated: consolidated.NetSales,
		RegionalSum:  sum,
		Delta:        delta,
	}

	r.log.Warn().
		Str("quarter", quarterKey).
		Float64("consolidated", consolidated.NetSales).
		Float64("regional_sum", sum).
		Float64("delta", delta).
		Msg("Regional net sales do not sum to consolidated")

	return warning, nil
}

// CheckAllPartitions runs CheckPartition over every quarter that has regional
// rows and returns the warnings found.
func (r *Repository) CheckAllPartitions() ([]PartitionWarning, error) {
	rows, err := r.db.Query(`SELECT DISTINCT quarter_key FROM regional_financials`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quarters with regional rows: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan quarter key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quarter keys: %w", err)
	}

	var warnings []PartitionWarning
	for _, key := range keys {
		warning, err := r.CheckPartition(key)
		if err != nil {
			return nil, err
		}
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	return warnings, nil
}
