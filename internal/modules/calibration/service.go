package calibration

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/forecast"
	"github.com/attikos/foresight/internal/modules/history"
	"github.com/attikos/foresight/internal/modules/statement"
)

// statementMetric maps one scored statement line to its forecast and
// reported readings. Reported lines carried as pointers are skipped for
// quarters that never filed them.
type statementMetric struct {
	scope    string
	forecast func(statement.Statement) float64
	reported func(history.ConsolidatedRow) (float64, bool)
}

func optional(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

var statementMetrics = []statementMetric{
	{
		scope:    "net_sales",
		forecast: func(s statement.Statement) float64 { return s.NetSales },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return c.NetSales, true },
	},
	{
		scope:    "cost_of_sales",
		forecast: func(s statement.Statement) float64 { return s.CostOfSales },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return c.CostOfSales, true },
	},
	{
		scope:    "sga",
		forecast: func(s statement.Statement) float64 { return s.SGA },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return c.SGA, true },
	},
	{
		scope:    "operating_income",
		forecast: func(s statement.Statement) float64 { return s.OperatingIncome },
		reported: func(c history.ConsolidatedRow) (float64, bool) {
			return c.NetSales - c.CostOfSales - c.SGA - c.Impairments, true
		},
	},
	{
		scope:    "interest_income",
		forecast: func(s statement.Statement) float64 { return s.InterestIncome },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return optional(c.InterestIncome) },
	},
	{
		scope:    "pretax_income",
		forecast: func(s statement.Statement) float64 { return s.PretaxIncome },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return optional(c.PretaxIncome) },
	},
	{
		scope:    "tax_expense",
		forecast: func(s statement.Statement) float64 { return s.TaxExpense },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return optional(c.TaxExpense) },
	},
	{
		scope:    "net_income",
		forecast: func(s statement.Statement) float64 { return s.NetIncome },
		reported: func(c history.ConsolidatedRow) (float64, bool) { return optional(c.NetIncome) },
	},
}

// Service sweeps the run ledger against reported actuals and keeps the
// resulting scores. Partition reconciliation rides along: a quarter whose
// regional rows do not sum to the consolidated figure taints any score that
// quarter feeds, so the sweep surfaces it as a warning.
type Service struct {
	history *history.Repository
	runs    *forecast.Repository
	results *Repository
	scorer  *Scorer
	events  *events.Manager
	floor   float64
	log     zerolog.Logger
}

func NewService(
	historyRepo *history.Repository,
	runs *forecast.Repository,
	results *Repository,
	eventManager *events.Manager,
	floor float64,
	log zerolog.Logger,
) *Service {
	if floor <= 0 {
		floor = DefaultMAPEFloor
	}
	return &Service{
		history: historyRepo,
		runs:    runs,
		results: results,
		scorer:  NewScorer(log),
		events:  eventManager,
		floor:   floor,
		log:     log.With().Str("service", "calibration").Logger(),
	}
}

// Backtest scores every completed run against the quarters reported since,
// persists the scores, and returns them with any partition warnings. A sweep
// with nothing to score still runs the reconciliation check.
func (s *Service) Backtest() (*Result, error) {
	runs, err := s.runs.CompletedRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to list completed runs: %w", err)
	}

	reported, err := s.history.ConsolidatedAll()
	if err != nil {
		return nil, err
	}
	actuals := make(map[string]history.ConsolidatedRow, len(reported))
	for _, row := range reported {
		actuals[row.Quarter] = row
	}

	observations := make(map[string][]Observation)
	matched := 0
	for _, run := range runs {
		statements, err := s.runs.Statements(run.ID)
		if err != nil {
			return nil, err
		}
		for _, st := range statements {
			actual, ok := actuals[st.QuarterKey]
			if !ok {
				continue
			}
			matched++
			for _, m := range statementMetrics {
				value, ok := m.reported(actual)
				if !ok {
					continue
				}
				observations[m.scope] = append(observations[m.scope], Observation{
					RunID:      run.ID,
					QuarterKey: st.QuarterKey,
					Forecast:   m.forecast(st),
					Reported:   value,
				})
			}
		}
	}

	result := &Result{CreatedAt: time.Now().UTC()}
	for _, m := range statementMetrics {
		obs := observations[m.scope]
		if len(obs) == 0 {
			continue
		}
		result.Scores = append(result.Scores, s.scorer.Score(m.scope, obs, s.floor))
	}

	warnings, err := s.history.CheckAllPartitions()
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings
	for _, w := range warnings {
		s.events.Emit(events.CalibrationWarning, "calibration", map[string]interface{}{
			"quarter": w.Quarter,
			"delta":   w.Delta,
			"message": w.String(),
		})
	}

	if len(result.Scores) > 0 {
		if err := s.results.SaveScores(result.CreatedAt, result.Scores); err != nil {
			return nil, err
		}
	}

	s.events.Emit(events.CalibrationCompleted, "calibration", map[string]interface{}{
		"scopes":           len(result.Scores),
		"matched_quarters": matched,
		"warnings":         len(warnings),
	})
	s.log.Info().
		Int("runs", len(runs)).
		Int("matched_quarters", matched).
		Int("scopes", len(result.Scores)).
		Int("warnings", len(warnings)).
		Msg("Calibration sweep completed")

	return result, nil
}

// LatestScores returns the most recent persisted score per metric and scope.
func (s *Service) LatestScores() ([]StoredScore, error) {
	return s.results.LatestScores()
}

// Warnings recomputes the partition reconciliation over all stored quarters.
func (s *Service) Warnings() ([]history.PartitionWarning, error) {
	return s.history.CheckAllPartitions()
}
