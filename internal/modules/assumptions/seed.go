package assumptions

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/pkg/embedded"
)

const seedDocument = "seed/baseline.yaml"

// defaultRegions is the catalog installed on an empty model database. The
// European segment stops reporting after its disposal completes.
var defaultRegions = []domain.Region{
	{Code: domain.RegionUS, Name: "United States"},
	{Code: domain.RegionCA, Name: "Canada"},
	{Code: domain.RegionAU, Name: "Australia & New Zealand"},
	{Code: domain.RegionEU, Name: "Europe", DivestedAfter: "FY2025Q1"},
}

// EnsureSeeded installs the baseline assumption set and region catalog on a
// fresh database. Existing data is left alone, so re-running at startup is
// safe.
func EnsureSeeded(repo *Repository, log zerolog.Logger) error {
	count, err := repo.Count()
	if err != nil {
		return err
	}
	if count == 0 {
		payload, err := embedded.Files.ReadFile(seedDocument)
		if err != nil {
			return fmt.Errorf("failed to read seed document: %w", err)
		}
		set, err := Parse(payload)
		if err != nil {
			return fmt.Errorf("seed document is invalid: %w", err)
		}
		if err := repo.Create(set, payload); err != nil {
			return err
		}
		if err := repo.Activate(set.ID); err != nil {
			return err
		}
		log.Info().Str("name", set.Name).Msg("Seeded baseline assumption set")
	}

	regions, err := repo.Regions()
	if err != nil {
		return err
	}
	if len(regions) == 0 {
		for _, region := range defaultRegions {
			if err := repo.UpsertRegion(region); err != nil {
				return err
			}
		}
		log.Info().Int("regions", len(defaultRegions)).Msg("Seeded region catalog")
	}
	return nil
}
