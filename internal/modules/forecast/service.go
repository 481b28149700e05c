package forecast

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/events"
	"github.com/attikos/foresight/internal/modules/assumptions"
	"github.com/attikos/foresight/internal/modules/costs"
	"github.com/attikos/foresight/internal/modules/growth"
	"github.com/attikos/foresight/internal/modules/history"
	"github.com/attikos/foresight/internal/modules/holdings"
	"github.com/attikos/foresight/internal/modules/overlay"
	"github.com/attikos/foresight/internal/modules/statement"
	"github.com/attikos/foresight/internal/modules/tax"
	"github.com/attikos/foresight/internal/modules/treasury"
)

// FixingSource supplies externally observed rate fixings, unix midnight UTC
// day to annual percent. Optional.
type FixingSource interface {
	RateFixings() (map[int64]float64, error)
}

// Service runs the projection pipeline end to end against the active
// assumption set and writes the result to the run ledger.
type Service struct {
	history  *history.Repository
	sets     *assumptions.Repository
	volumes  *overlay.Repository
	treasury *treasury.Repository
	programs *holdings.Repository
	runs     *Repository
	events   *events.Manager
	fixings  FixingSource
	log      zerolog.Logger

	projector  *growth.Projector
	normalizer *costs.Normalizer
	overlay    *overlay.Model
	engine     *treasury.Engine
	valuer     *holdings.Valuer
	estimator  *tax.Estimator
	builder    *statement.Builder
}

func NewService(
	historyRepo *history.Repository,
	sets *assumptions.Repository,
	volumes *overlay.Repository,
	treasuryRepo *treasury.Repository,
	programs *holdings.Repository,
	runs *Repository,
	eventManager *events.Manager,
	fixings FixingSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		history:  historyRepo,
		sets:     sets,
		volumes:  volumes,
		treasury: treasuryRepo,
		programs: programs,
		runs:     runs,
		events:   eventManager,
		fixings:  fixings,
		log:      log.With().Str("service", "forecast").Logger(),

		projector:  growth.NewProjector(log),
		normalizer: costs.NewNormalizer(log),
		overlay:    overlay.NewModel(log),
		engine:     treasury.NewEngine(log),
		valuer:     holdings.NewValuer(log),
		estimator:  tax.NewEstimator(log),
		builder:    statement.NewBuilder(log),
	}
}

// Execute runs a forecast against the active assumption set. A positive
// quarters value overrides the set's horizon for this run only. Both
// outcomes persist: a completed run with its statements, or a failed run
// with the error that stopped it.
func (s *Service) Execute(quarters int) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusFailed,
	}
	s.events.Emit(events.RunStarted, "forecast", map[string]interface{}{
		"run_id": run.ID,
	})
	s.log.Info().Str("run_id", run.ID).Msg("Forecast run started")

	if err := s.execute(run, quarters); err != nil {
		run.Error = err.Error()
		if saveErr := s.runs.SaveRun(run); saveErr != nil {
			s.log.Error().Err(saveErr).Str("run_id", run.ID).Msg("Failed to persist failed run")
		}
		s.events.Emit(events.RunFailed, "forecast", map[string]interface{}{
			"run_id": run.ID,
			"error":  err.Error(),
		})
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Forecast run failed")
		return nil, err
	}

	run.Status = StatusCompleted
	if err := s.runs.SaveRun(run); err != nil {
		return nil, err
	}
	s.events.Emit(events.RunCompleted, "forecast", map[string]interface{}{
		"run_id":   run.ID,
		"quarters": len(run.Statements),
		"warnings": len(run.Warnings),
	})
	s.log.Info().
		Str("run_id", run.ID).
		Int("quarters", len(run.Statements)).
		Msg("Forecast run completed")
	return run, nil
}

func (s *Service) execute(run *Run, quarters int) error {
	set, err := s.sets.Active()
	if err != nil {
		return err
	}
	if quarters <= 0 {
		quarters = set.HorizonQuarters
	}
	run.AssumptionSetID = set.ID
	run.AssumptionName = set.Name
	run.AssumptionVersion = set.Version
	run.Horizon = quarters

	cal, err := s.history.Calendar()
	if err != nil {
		return err
	}
	regions, err := s.sets.Regions()
	if err != nil {
		return err
	}
	regional, err := s.history.RegionalAll()
	if err != nil {
		return err
	}
	if len(regional) == 0 {
		return fmt.Errorf("no reported regional history: %w", history.ErrMissingQuarter)
	}

	horizon, err := s.buildHorizon(cal, regional, quarters)
	if err != nil {
		return err
	}

	projections, err := s.projector.Project(growth.Input{
		Calendar: cal,
		Regions:  regions,
		History:  regional,
		Growth:   set.Growth,
		Horizon:  horizon,
	})
	if err != nil {
		return fmt.Errorf("growth: %w", err)
	}
	run.Growth = projections
	s.componentDone(run.ID, "growth", len(projections))

	lines, err := s.normalizer.Normalize(costs.Input{
		Calendar:    cal,
		History:     regional,
		Costs:       set.Costs,
		Projections: projections,
	})
	if err != nil {
		return fmt.Errorf("costs: %w", err)
	}
	run.Costs = lines
	s.componentDone(run.ID, "costs", len(lines))

	contributions, err := s.overlayContributions(cal, regions, set, horizon)
	if err != nil {
		return fmt.Errorf("overlay: %w", err)
	}
	run.Overlay = contributions
	s.componentDone(run.ID, "overlay", len(contributions))

	positions, err := s.markHoldings(cal, set, horizon)
	if err != nil {
		return fmt.Errorf("holdings: %w", err)
	}
	run.Holdings = positions
	s.componentDone(run.ID, "holdings", len(positions))

	treasuryResults, err := s.simulateTreasury(cal, set, horizon, positions)
	if err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	run.Treasury = treasuryResults
	s.componentDone(run.ID, "treasury", len(treasuryResults))

	estimate, err := s.estimateTax(set)
	if err != nil {
		return fmt.Errorf("tax: %w", err)
	}
	run.Tax = estimate
	if estimate.Fallback {
		run.Warnings = append(run.Warnings,
			fmt.Sprintf("tax: historical pre-tax base unusable, analyst rate %.1f%% applied", estimate.RatePct))
	}
	s.componentDone(run.ID, "tax", len(estimate.Reference))

	statements, err := s.builder.Build(statement.Input{
		Quarters:    horizon,
		Growth:      projections,
		Costs:       lines,
		Overlay:     contributions,
		Treasury:    treasuryResults,
		Holdings:    positions,
		Tax:         estimate,
		CostTerms:   set.Costs,
		Shares:      set.Shares,
		OtherIncome: set.OtherIncome,
	})
	if err != nil {
		return fmt.Errorf("statement: %w", err)
	}
	run.Statements = statements
	s.componentDone(run.ID, "statement", len(statements))

	return nil
}

// buildHorizon finds the quarters after the last reported one, appending
// forecast quarters to the calendar when the stored grid runs short.
func (s *Service) buildHorizon(cal *domain.Calendar, regional []domain.QuarterFinancials, n int) ([]domain.FiscalQuarter, error) {
	var latest domain.FiscalQuarter
	for _, row := range regional {
		if latest.IsZero() || row.Quarter.After(latest) {
			latest = row.Quarter
		}
	}

	horizon := quartersAfter(cal, latest)
	if len(horizon) < n {
		cal.Extend(n-len(horizon), domain.DefaultQuarterDays)
		horizon = quartersAfter(cal, latest)
	}
	if len(horizon) < n {
		return nil, fmt.Errorf("calendar cannot supply %d quarters after %s", n, latest.Key())
	}
	return horizon[:n], nil
}

func quartersAfter(cal *domain.Calendar, q domain.FiscalQuarter) []domain.FiscalQuarter {
	var out []domain.FiscalQuarter
	for _, candidate := range cal.Quarters() {
		if candidate.After(q) {
			out = append(out, candidate)
		}
	}
	return out
}

func (s *Service) overlayContributions(cal *domain.Calendar, regions []domain.Region, set *assumptions.Set, horizon []domain.FiscalQuarter) ([]overlay.Contribution, error) {
	if !set.Overlay.Enabled {
		return nil, nil
	}
	volumes, err := s.volumes.Volumes(set.Overlay.Cycle)
	if err != nil {
		return nil, err
	}
	return s.overlay.Compute(overlay.Input{
		Calendar: cal,
		Regions:  regions,
		Overlay:  set.Overlay,
		Volumes:  volumes,
		Horizon:  horizon,
	}), nil
}

func (s *Service) markHoldings(cal *domain.Calendar, set *assumptions.Set, horizon []domain.FiscalQuarter) ([]holdings.SymbolResult, error) {
	programs, err := s.programs.Programs()
	if err != nil {
		return nil, err
	}
	return s.valuer.Value(holdings.Input{
		Calendar: cal,
		Quarters: horizon,
		Programs: programs,
		Holdings: set.Holdings,
	}, s.history)
}

// simulateTreasury bridges from the latest filed liquidity anchor through
// the horizon. Reported quarters between the anchor and the horizon ride
// along and reconcile against their own anchors where present.
func (s *Service) simulateTreasury(cal *domain.Calendar, set *assumptions.Set, horizon []domain.FiscalQuarter, positions []holdings.SymbolResult) ([]treasury.QuarterResult, error) {
	anchors, err := s.history.LiquidityAnchors()
	if err != nil {
		return nil, err
	}

	var anchorQuarter domain.FiscalQuarter
	for key := range anchors {
		q, ok := cal.ByKey(key)
		if !ok {
			continue
		}
		if anchorQuarter.IsZero() || q.After(anchorQuarter) {
			anchorQuarter = q
		}
	}
	if anchorQuarter.IsZero() {
		return nil, ErrNoAnchor
	}

	last := horizon[len(horizon)-1]
	var quarters []domain.FiscalQuarter
	for _, q := range cal.Quarters() {
		if q.After(anchorQuarter) && !q.After(last) {
			quarters = append(quarters, q)
		}
	}
	if len(quarters) == 0 {
		return nil, fmt.Errorf("no quarters to simulate after anchor %s", anchorQuarter.Key())
	}

	reportedInterest, err := s.history.ReportedInterest()
	if err != nil {
		return nil, err
	}
	rateEvents, err := s.treasury.RateEvents()
	if err != nil {
		return nil, err
	}
	funding, err := s.treasury.FundingEvents()
	if err != nil {
		return nil, err
	}

	var fixings map[int64]float64
	if s.fixings != nil {
		fixings, err = s.fixings.RateFixings()
		if err != nil {
			// Fixings refine the rate path but never block a run.
			s.log.Warn().Err(err).Msg("Rate fixings unavailable")
		}
	}

	return s.engine.Simulate(treasury.Input{
		Calendar:         cal,
		Quarters:         quarters,
		StartBalance:     anchors[anchorQuarter.Key()],
		Anchors:          anchors,
		ReportedInterest: reportedInterest,
		Treasury:         set.Treasury,
		RateEvents:       rateEvents,
		Funding:          funding,
		Outflows:         purchaseOutflows(positions),
		Fixings:          fixings,
	})
}

// purchaseOutflows folds every symbol's execution schedule into daily cash
// outflows for the balance path.
func purchaseOutflows(positions []holdings.SymbolResult) []treasury.DailyOutflow {
	var out []treasury.DailyOutflow
	for _, position := range positions {
		for _, fill := range position.Schedule {
			out = append(out, treasury.DailyOutflow{Day: fill.Day, Amount: fill.Spend})
		}
	}
	return out
}

func (s *Service) estimateTax(set *assumptions.Set) (tax.Estimate, error) {
	consolidated, err := s.history.ConsolidatedAll()
	if err != nil {
		return tax.Estimate{}, err
	}

	var periods []tax.ReferencePeriod
	for _, row := range consolidated {
		if row.TaxExpense == nil {
			continue
		}
		base := row.NetSales - row.CostOfSales - row.SGA
		if row.InterestIncome != nil {
			base += *row.InterestIncome
		}
		periods = append(periods, tax.ReferencePeriod{
			QuarterKey: row.Quarter,
			TaxExpense: *row.TaxExpense,
			PretaxBase: base,
		})
	}

	return s.estimator.Estimate(periods, set.Tax), nil
}

func (s *Service) componentDone(runID, component string, count int) {
	s.events.Emit(events.ComponentCompleted, "forecast", map[string]interface{}{
		"run_id":    runID,
		"component": component,
		"outputs":   count,
	})
}
