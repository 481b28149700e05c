// Package history provides storage for reported financials: the fiscal
// calendar, per-region and consolidated line items, quarter-end liquidity
// anchors, reported interest income and daily asset prices. Everything in
// this package is an actual from a filing; forecast output never lands here.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/database"
	"github.com/attikos/foresight/internal/domain"
	"github.com/attikos/foresight/internal/utils"
)

// Repository handles reported financial history stored in history.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// UpsertQuarter stores or updates a fiscal quarter on the calendar grid.
func (r *Repository) UpsertQuarter(q domain.FiscalQuarter) error {
	query := `
		INSERT INTO fiscal_quarters (key, fiscal_year, fiscal_quarter, end_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			fiscal_year = excluded.fiscal_year,
			fiscal_quarter = excluded.fiscal_quarter,
			end_date = excluded.end_date
	`

	_, err := r.db.Exec(query, q.Key(), q.Year, q.Quarter, utils.DayUnix(q.EndDate))
	if err != nil {
		return fmt.Errorf("failed to upsert quarter %s: %w", q.Key(), err)
	}

	return nil
}

// Calendar loads the full fiscal quarter grid in end-date order.
func (r *Repository) Calendar() (*domain.Calendar, error) {
	query := `SELECT fiscal_year, fiscal_quarter, end_date FROM fiscal_quarters ORDER BY end_date`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fiscal quarters: %w", err)
	}
	defer rows.Close()

	var quarters []domain.FiscalQuarter
	for rows.Next() {
		var q domain.FiscalQuarter
		var endDate int64
		if err := rows.Scan(&q.Year, &q.Quarter, &endDate); err != nil {
			return nil, fmt.Errorf("failed to scan fiscal quarter: %w", err)
		}
		q.EndDate = utils.UnixToDay(endDate)
		quarters = append(quarters, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fiscal quarters: %w", err)
	}

	if len(quarters) == 0 {
		return nil, fmt.Errorf("fiscal calendar is empty: %w", ErrMissingQuarter)
	}

	return domain.NewCalendar(quarters)
}

// QuarterByKey looks up a single quarter on the grid.
func (r *Repository) QuarterByKey(key string) (domain.FiscalQuarter, error) {
	query := `SELECT fiscal_year, fiscal_quarter, end_date FROM fiscal_quarters WHERE key = ?`

	var q domain.FiscalQuarter
	var endDate int64
	err := r.db.QueryRow(query, key).Scan(&q.Year, &q.Quarter, &endDate)
	if err == sql.ErrNoRows {
		return domain.FiscalQuarter{}, fmt.Errorf("quarter %s: %w", key, ErrMissingQuarter)
	}
	if err != nil {
		return domain.FiscalQuarter{}, fmt.Errorf("failed to query quarter %s: %w", key, err)
	}
	q.EndDate = utils.UnixToDay(endDate)

	return q, nil
}

// UpsertRegionalFinancials stores one region's reported line items for a
// quarter. The quarter must already exist on the calendar grid.
func (r *Repository) UpsertRegionalFinancials(f domain.QuarterFinancials) error {
	query := `
		INSERT INTO regional_financials (region, quarter_key, net_sales, cost_of_sales, sga, impairments)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(region, quarter_key) DO UPDATE SET
			net_sales = excluded.net_sales,
			cost_of_sales = excluded.cost_of_sales,
			sga = excluded.sga,
			impairments = excluded.impairments
	`

	_, err := r.db.Exec(query,
		string(f.Region), f.Quarter.Key(), f.NetSales, f.CostOfSales, f.SGA, f.Impairments)
	if err != nil {
		return fmt.Errorf("failed to upsert regional financials %s/%s: %w",
			f.Region, f.Quarter.Key(), err)
	}

	return nil
}

// RegionalFinancials returns one region's reported line items for a quarter.
// Returns ErrMissingQuarter when the region has no row for that quarter.
func (r *Repository) RegionalFinancials(region domain.RegionCode, quarterKey string) (domain.QuarterFinancials, error) {
	query := `
		SELECT rf.net_sales, rf.cost_of_sales, rf.sga, rf.impairments,
		       fq.fiscal_year, fq.fiscal_quarter, fq.end_date
		FROM regional_financials rf
		JOIN fiscal_quarters fq ON fq.key = rf.quarter_key
		WHERE rf.region = ? AND rf.quarter_key = ?
	`

	f := domain.QuarterFinancials{Region: region, Status: domain.StatusReported}
	var endDate int64
	err := r.db.QueryRow(query, string(region), quarterKey).Scan(
		&f.NetSales, &f.CostOfSales, &f.SGA, &f.Impairments,
		&f.Quarter.Year, &f.Quarter.Quarter, &endDate)
	if err == sql.ErrNoRows {
		return domain.QuarterFinancials{}, fmt.Errorf("region %s quarter %s: %w",
			region, quarterKey, ErrMissingQuarter)
	}
	if err != nil {
		return domain.QuarterFinancials{}, fmt.Errorf("failed to query regional financials %s/%s: %w",
			region, quarterKey, err)
	}
	f.Quarter.EndDate = utils.UnixToDay(endDate)

	return f, nil
}

// RegionalByQuarter returns all regions' reported line items for one quarter.
func (r *Repository) RegionalByQuarter(quarterKey string) ([]domain.QuarterFinancials, error) {
	query := `
		SELECT rf.region, rf.net_sales, rf.cost_of_sales, rf.sga, rf.impairments,
		       fq.fiscal_year, fq.fiscal_quarter, fq.end_date
		FROM regional_financials rf
		JOIN fiscal_quarters fq ON fq.key = rf.quarter_key
		WHERE rf.quarter_key = ?
		ORDER BY rf.region
	`

	rows, err := r.db.Query(query, quarterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query regional financials for %s: %w", quarterKey, err)
	}
	defer rows.Close()

	return r.scanRegionalRows(rows)
}

// RegionalAll returns every region × quarter reported row in end-date order.
func (r *Repository) RegionalAll() ([]domain.QuarterFinancials, error) {
	query := `
		SELECT rf.region, rf.net_sales, rf.cost_of_sales, rf.sga, rf.impairments,
		       fq.fiscal_year, fq.fiscal_quarter, fq.end_date
		FROM regional_financials rf
		JOIN fiscal_quarters fq ON fq.key = rf.quarter_key
		ORDER BY fq.end_date, rf.region
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query regional financials: %w", err)
	}
	defer rows.Close()

	return r.scanRegionalRows(rows)
}

// RegionalHistory returns one region's full reported history in end-date order.
func (r *Repository) RegionalHistory(region domain.RegionCode) ([]domain.QuarterFinancials, error) {
	query := `
		SELECT rf.region, rf.net_sales, rf.cost_of_sales, rf.sga, rf.impairments,
		       fq.fiscal_year, fq.fiscal_quarter, fq.end_date
		FROM regional_financials rf
		JOIN fiscal_quarters fq ON fq.key = rf.quarter_key
		WHERE rf.region = ?
		ORDER BY fq.end_date
	`

	rows, err := r.db.Query(query, string(region))
	if err != nil {
		return nil, fmt.Errorf("failed to query regional history for %s: %w", region, err)
	}
	defer rows.Close()

	return r.scanRegionalRows(rows)
}

func (r *Repository) scanRegionalRows(rows *sql.Rows) ([]domain.QuarterFinancials, error) {
	var out []domain.QuarterFinancials
	for rows.Next() {
		var f domain.QuarterFinancials
		var region string
		var endDate int64
		if err := rows.Scan(&region, &f.NetSales, &f.CostOfSales, &f.SGA, &f.Impairments,
			&f.Quarter.Year, &f.Quarter.Quarter, &endDate); err != nil {
			return nil, fmt.Errorf("failed to scan regional financials: %w", err)
		}
		f.Region = domain.RegionCode(region)
		f.Status = domain.StatusReported
		f.Quarter.EndDate = utils.UnixToDay(endDate)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regional financials: %w", err)
	}

	return out, nil
}

// UpsertConsolidated stores one quarter's consolidated statement lines.
func (r *Repository) UpsertConsolidated(c ConsolidatedRow) error {
	query := `
		INSERT INTO consolidated_financials (
			quarter_key, net_sales, cost_of_sales, sga, impairments,
			interest_income, pretax_income, tax_expense, net_income,
			basic_shares, diluted_shares
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quarter_key) DO UPDATE SET
			net_sales = excluded.net_sales,
			cost_of_sales = excluded.cost_of_sales,
			sga = excluded.sga,
			impairments = excluded.impairments,
			interest_income = excluded.interest_income,
			pretax_income = excluded.pretax_income,
			tax_expense = excluded.tax_expense,
			net_income = excluded.net_income,
			basic_shares = excluded.basic_shares,
			diluted_shares = excluded.diluted_shares
	`

	_, err := r.db.Exec(query,
		c.Quarter, c.NetSales, c.CostOfSales, c.SGA, c.Impairments,
		c.InterestIncome, c.PretaxIncome, c.TaxExpense, c.NetIncome,
		c.BasicShares, c.DilutedShares)
	if err != nil {
		return fmt.Errorf("failed to upsert consolidated financials %s: %w", c.Quarter, err)
	}

	return nil
}

// Consolidated returns one quarter's consolidated statement lines.
func (r *Repository) Consolidated(quarterKey string) (*ConsolidatedRow, error) {
	query := `
		SELECT quarter_key, net_sales, cost_of_sales, sga, impairments,
		       interest_income, pretax_income, tax_expense, net_income,
		       basic_shares, diluted_shares
		FROM consolidated_financials
		WHERE quarter_key = ?
	`

	var c ConsolidatedRow
	err := r.db.QueryRow(query, quarterKey).Scan(
		&c.Quarter, &c.NetSales, &c.CostOfSales, &c.SGA, &c.Impairments,
		&c.InterestIncome, &c.PretaxIncome, &c.TaxExpense, &c.NetIncome,
		&c.BasicShares, &c.DilutedShares)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("consolidated %s: %w", quarterKey, ErrMissingQuarter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query consolidated financials %s: %w", quarterKey, err)
	}

	return &c, nil
}

// ConsolidatedAll returns all consolidated rows in end-date order.
func (r *Repository) ConsolidatedAll() ([]ConsolidatedRow, error) {
	query := `
		SELECT cf.quarter_key, cf.net_sales, cf.cost_of_sales, cf.sga, cf.impairments,
		       cf.interest_income, cf.pretax_income, cf.tax_expense, cf.net_income,
		       cf.basic_shares, cf.diluted_shares
		FROM consolidated_financials cf
		JOIN fiscal_quarters fq ON fq.key = cf.quarter_key
		ORDER BY fq.end_date
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query consolidated financials: %w", err)
	}
	defer rows.Close()

	var out []ConsolidatedRow
	for rows.Next() {
		var c ConsolidatedRow
		if err := rows.Scan(
			&c.Quarter, &c.NetSales, &c.CostOfSales, &c.SGA, &c.Impairments,
			&c.InterestIncome, &c.PretaxIncome, &c.TaxExpense, &c.NetIncome,
			&c.BasicShares, &c.DilutedShares); err != nil {
			return nil, fmt.Errorf("failed to scan consolidated financials: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consolidated financials: %w", err)
	}

	return out, nil
}

// UpsertLiquidityAnchor stores a quarter-end cash and investments figure.
func (r *Repository) UpsertLiquidityAnchor(quarterKey string, amount float64) error {
	query := `
		INSERT INTO liquidity_anchors (quarter_key, cash_and_investments)
		VALUES (?, ?)
		ON CONFLICT(quarter_key) DO UPDATE SET
			cash_and_investments = excluded.cash_and_investments
	`

	if _, err := r.db.Exec(query, quarterKey, amount); err != nil {
		return fmt.Errorf("failed to upsert liquidity anchor %s: %w", quarterKey, err)
	}

	return nil
}

// LiquidityAnchor returns the quarter-end cash figure for one quarter.
// Returns ErrNoLiquidityAnchor when absent.
func (r *Repository) LiquidityAnchor(quarterKey string) (float64, error) {
	var amount float64
	err := r.db.QueryRow(
		`SELECT cash_and_investments FROM liquidity_anchors WHERE quarter_key = ?`,
		quarterKey).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("quarter %s: %w", quarterKey, ErrNoLiquidityAnchor)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query liquidity anchor %s: %w", quarterKey, err)
	}

	return amount, nil
}

// LiquidityAnchors returns all quarter-end cash figures keyed by quarter.
func (r *Repository) LiquidityAnchors() (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT quarter_key, cash_and_investments FROM liquidity_anchors`)
	if err != nil {
		return nil, fmt.Errorf("failed to query liquidity anchors: %w", err)
	}
	defer rows.Close()

	anchors := make(map[string]float64)
	for rows.Next() {
		var key string
		var amount float64
		if err := rows.Scan(&key, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan liquidity anchor: %w", err)
		}
		anchors[key] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liquidity anchors: %w", err)
	}

	return anchors, nil
}

// UpsertReportedInterest stores a quarter's interest income as reported.
func (r *Repository) UpsertReportedInterest(quarterKey string, amount float64) error {
	query := `
		INSERT INTO reported_interest (quarter_key, interest_income)
		VALUES (?, ?)
		ON CONFLICT(quarter_key) DO UPDATE SET
			interest_income = excluded.interest_income
	`

	if _, err := r.db.Exec(query, quarterKey, amount); err != nil {
		return fmt.Errorf("failed to upsert reported interest %s: %w", quarterKey, err)
	}

	return nil
}

// ReportedInterest returns all reported interest income figures keyed by quarter.
func (r *Repository) ReportedInterest() (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT quarter_key, interest_income FROM reported_interest`)
	if err != nil {
		return nil, fmt.Errorf("failed to query reported interest: %w", err)
	}
	defer rows.Close()

	reported := make(map[string]float64)
	for rows.Next() {
		var key string
		var amount float64
		if err := rows.Scan(&key, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan reported interest: %w", err)
		}
		reported[key] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reported interest: %w", err)
	}

	return reported, nil
}

// UpsertDailyBars stores daily OHLC bars for a symbol in one transaction.
func (r *Repository) UpsertDailyBars(symbol string, bars []DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO daily_prices (symbol, day, open, high, low, close)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(symbol, day) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare daily price insert: %w", err)
		}
		defer stmt.Close()

		for _, bar := range bars {
			if _, err := stmt.Exec(symbol, utils.DayUnix(bar.Day),
				bar.Open, bar.High, bar.Low, bar.Close); err != nil {
				return fmt.Errorf("failed to insert daily price %s/%s: %w",
					symbol, bar.Day.Format(utils.DateLayout), err)
			}
		}

		return nil
	})
}

// PricesBetween returns daily bars for a symbol with day in [from, to],
// inclusive, in day order. Returns ErrNoPrices when the range is empty.
func (r *Repository) PricesBetween(symbol string, from, to time.Time) ([]DailyBar, error) {
	query := `
		SELECT day, open, high, low, close
		FROM daily_prices
		WHERE symbol = ? AND day >= ? AND day <= ?
		ORDER BY day
	`

	rows, err := r.db.Query(query, symbol, utils.DayUnix(from), utils.DayUnix(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []DailyBar
	for rows.Next() {
		var bar DailyBar
		var day int64
		var open, high, low sql.NullFloat64
		if err := rows.Scan(&day, &open, &high, &low, &bar.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		bar.Day = utils.UnixToDay(day)
		if open.Valid {
			bar.Open = &open.Float64
		}
		if high.Valid {
			bar.High = &high.Float64
		}
		if low.Valid {
			bar.Low = &low.Float64
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prices for %s: %w", symbol, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("symbol %s in [%s, %s]: %w",
			symbol, from.Format(utils.DateLayout), to.Format(utils.DateLayout), ErrNoPrices)
	}

	return bars, nil
}

// LastCloseOnOrBefore returns the most recent close for a symbol on or before
// the given day. Returns ErrNoPrices when the symbol has no earlier data.
func (r *Repository) LastCloseOnOrBefore(symbol string, day time.Time) (float64, error) {
	query := `
		SELECT close FROM daily_prices
		WHERE symbol = ? AND day <= ?
		ORDER BY day DESC
		LIMIT 1
	`

	var close float64
	err := r.db.QueryRow(query, symbol, utils.DayUnix(day)).Scan(&close)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("symbol %s on or before %s: %w",
			symbol, day.Format(utils.DateLayout), ErrNoPrices)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query last close for %s: %w", symbol, err)
	}

	return close, nil
}
