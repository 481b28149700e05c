package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/domain"
)

func seedPartitionQuarter(t *testing.T, repo *Repository, consolidated float64, regional map[domain.RegionCode]float64) {
	t.Helper()

	q := domain.FiscalQuarter{Year: 2024, Quarter: 2, EndDate: day(2024, time.August, 3)}
	require.NoError(t, repo.UpsertQuarter(q))
	require.NoError(t, repo.UpsertConsolidated(ConsolidatedRow{
		Quarter:  q.Key(),
		NetSales: consolidated,
	}))
	for region, sales := range regional {
		require.NoError(t, repo.UpsertRegionalFinancials(domain.QuarterFinancials{
			Region:   region,
			Quarter:  q,
			NetSales: sales,
		}))
	}
}

func TestCheckPartitionWithinTolerance(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	seedPartitionQuarter(t, repo, 798.3, map[domain.RegionCode]float64{
		domain.RegionUS: 600.0,
		domain.RegionCA: 100.0,
		domain.RegionAU: 98.2,
	})

	warning, err := repo.CheckPartition("FY2024Q2")
	require.NoError(t, err)
	assert.Nil(t, warning, "0.1 gap is filing rounding, not a mismatch")
}

func TestCheckPartitionMismatch(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	seedPartitionQuarter(t, repo, 798.3, map[domain.RegionCode]float64{
		domain.RegionUS: 600.0,
		domain.RegionCA: 100.0,
	})

	warning, err := repo.CheckPartition("FY2024Q2")
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.InDelta(t, -98.3, warning.Delta, 1e-9)
	assert.Contains(t, warning.String(), "FY2024Q2")
}

func TestCheckPartitionNoConsolidated(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	q := domain.FiscalQuarter{Year: 2024, Quarter: 2, EndDate: day(2024, time.August, 3)}
	require.NoError(t, repo.UpsertQuarter(q))
	require.NoError(t, repo.UpsertRegionalFinancials(domain.QuarterFinancials{
		Region: domain.RegionUS, Quarter: q, NetSales: 100,
	}))

	warning, err := repo.CheckPartition("FY2024Q2")
	require.NoError(t, err)
	assert.Nil(t, warning)
}

func TestCheckAllPartitions(t *testing.T) {
	repo, db := newTestRepo(t)
	defer db.Close()

	seedPartitionQuarter(t, repo, 1000.0, map[domain.RegionCode]float64{
		domain.RegionUS: 500.0,
	})

	warnings, err := repo.CheckAllPartitions()
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "FY2024Q2", warnings[0].Quarter)
}
