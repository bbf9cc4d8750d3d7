package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mgh3326/rent-radar/internal/domain"
)

const tradeSelectColumns = `id, property_type, rent_type, trade_category, region_code, dong, apt_name,
	deposit, monthly_rent, area_m2, floor, contract_year, contract_month, contract_day, created_at`

const tradeInsertColumns = `property_type, rent_type, trade_category, region_code, dong, apt_name,
	deposit, monthly_rent, area_m2, floor, contract_year, contract_month, contract_day`

const tradeInsertColumnCount = 13

// tradeIdentityColumns is the uniqueness tuple for official trades.
// Prices (deposit, monthly_rent) are deliberately not part of identity:
// the portal republishes the same contract across months and a
// republished row must not duplicate.
const tradeIdentityColumns = `property_type, region_code, dong, apt_name, area_m2, floor,
	contract_year, contract_month, contract_day, rent_type, trade_category`

// TradeRepository stores official real-trade rows. Trades are
// immutable facts, so writes are insert-if-absent with no update arm.
type TradeRepository struct {
	db *sqlx.DB
}

// NewTradeRepository creates a new trade repository.
func NewTradeRepository(db *sqlx.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Insert persists trade records, silently skipping rows whose identity
// tuple already exists. Records are normalized first so empty identity
// fields collide on the unique constraint instead of slipping past it.
// Returns the number of rows actually inserted.
func (r *TradeRepository) Insert(ctx context.Context, records []domain.TradeRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		records[i].Normalize()
	}

	if r.db.DriverName() == "postgres" {
		return r.insertBulk(ctx, records)
	}
	return r.insertRowByRow(ctx, records)
}

func (r *TradeRepository) insertBulk(ctx context.Context, records []domain.TradeRecord) (int, error) {
	values := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*tradeInsertColumnCount)
	for i, record := range records {
		base := i * tradeInsertColumnCount
		marks := make([]string, 0, tradeInsertColumnCount)
		for j := 1; j <= tradeInsertColumnCount; j++ {
			marks = append(marks, fmt.Sprintf("$%d", base+j))
		}
		values = append(values, "("+strings.Join(marks, ", ")+")")
		args = append(args, tradeArgs(record)...)
	}

	query := `
		INSERT INTO real_trades (` + tradeInsertColumns + `)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (` + tradeIdentityColumns + `) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trades: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(inserted), nil
}

// insertRowByRow is the portable fallback: identity existence check,
// then insert. Duplicate identity rows are skipped, matching the
// conflict-ignoring fast path.
func (r *TradeRepository) insertRowByRow(ctx context.Context, records []domain.TradeRecord) (int, error) {
	existsQuery := r.db.Rebind(`
		SELECT id FROM real_trades
		WHERE property_type = ? AND region_code = ? AND dong = ? AND apt_name = ?
		  AND area_m2 = ? AND floor = ? AND contract_year = ? AND contract_month = ?
		  AND contract_day = ? AND rent_type = ? AND trade_category = ?`)
	insertQuery := r.db.Rebind(`
		INSERT INTO real_trades (` + tradeInsertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	inserted := 0
	for _, record := range records {
		var id int64
		err := r.db.GetContext(ctx, &id, existsQuery,
			string(record.PropertyType), record.RegionCode, record.Dong, record.AptName,
			record.AreaM2, record.Floor, record.ContractYear, record.ContractMonth,
			record.ContractDay, string(record.RentType), string(record.TradeCategory),
		)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return inserted, fmt.Errorf("failed to check existing trade: %w", err)
		}

		if _, execErr := r.db.ExecContext(ctx, insertQuery, tradeArgs(record)...); execErr != nil {
			return inserted, fmt.Errorf("failed to insert trade: %w", execErr)
		}
		inserted++
	}
	return inserted, nil
}

func tradeArgs(record domain.TradeRecord) []any {
	return []any{
		string(record.PropertyType), string(record.RentType), string(record.TradeCategory),
		record.RegionCode, record.Dong, record.AptName,
		record.Deposit, record.MonthlyRent, record.AreaM2, record.Floor,
		record.ContractYear, record.ContractMonth, record.ContractDay,
	}
}

// TradeFilters narrows trade queries.
type TradeFilters struct {
	RegionCode   string
	Dong         string
	AptName      string
	PropertyType string
	RentType     string
	Limit        int
}

// RecentTrades returns trades matching the filters, newest contracts
// first with stable id ordering within a day.
func (r *TradeRepository) RecentTrades(ctx context.Context, filters TradeFilters) ([]domain.RealTrade, error) {
	if filters.Limit < 0 {
		return nil, ErrInvalidLimit
	}
	if filters.Limit == 0 {
		filters.Limit = defaultSearchLimit
	}

	whereClause, args := buildTradeWhere(filters)
	query := fmt.Sprintf(`
		SELECT %s
		FROM real_trades
		%s
		ORDER BY contract_year DESC, contract_month DESC, contract_day DESC, id ASC
		LIMIT $%d`, tradeSelectColumns, whereClause, len(args)+1)
	args = append(args, filters.Limit)

	var trades []domain.RealTrade
	if err := r.db.SelectContext(ctx, &trades, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query recent trades: %w", err)
	}
	if trades == nil {
		trades = []domain.RealTrade{}
	}
	return trades, nil
}

// PriceTrend aggregates trades by contract month for the region,
// optionally narrowed to one building, oldest month first.
func (r *TradeRepository) PriceTrend(ctx context.Context, regionCode, aptName string, months int) ([]domain.TrendPoint, error) {
	if months <= 0 {
		months = 12
	}

	conditions := []string{"region_code = $1"}
	args := []any{regionCode}
	if aptName != "" {
		conditions = append(conditions, fmt.Sprintf("apt_name = $%d", len(args)+1))
		args = append(args, aptName)
	}

	query := fmt.Sprintf(`
		SELECT contract_year, contract_month,
			AVG(deposit) AS avg_deposit,
			AVG(monthly_rent) AS avg_monthly_rent,
			COUNT(*) AS trade_count
		FROM real_trades
		WHERE %s
		GROUP BY contract_year, contract_month
		ORDER BY contract_year DESC, contract_month DESC
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args)+1)
	args = append(args, months)

	var points []domain.TrendPoint
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query price trend: %w", err)
	}

	// Reverse to chronological order for charting.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	if points == nil {
		points = []domain.TrendPoint{}
	}
	return points, nil
}

// SaleTradeFilters scopes the sale-price comparables for a jeonse
// safety check. Year-month bounds are YYYYMM values; zero leaves the
// side unbounded.
type SaleTradeFilters struct {
	RegionCode     string
	Dong           string
	PropertyType   string
	StartYearMonth int
	EndYearMonth   int
}

// SaleTrades returns sale-category trades inside the contract window,
// newest contracts first.
func (r *TradeRepository) SaleTrades(ctx context.Context, filters SaleTradeFilters) ([]domain.RealTrade, error) {
	conditions := []string{"trade_category = $1"}
	args := []any{string(domain.TradeSale)}

	add := func(condition string, value any) {
		conditions = append(conditions, fmt.Sprintf(condition, len(args)+1))
		args = append(args, value)
	}

	if filters.RegionCode != "" {
		add("region_code = $%d", filters.RegionCode)
	}
	if filters.Dong != "" {
		add("dong ILIKE $%d", "%"+filters.Dong+"%")
	}
	if filters.PropertyType != "" {
		add("property_type = $%d", filters.PropertyType)
	}
	if filters.StartYearMonth > 0 {
		add("(contract_year * 100 + contract_month) >= $%d", filters.StartYearMonth)
	}
	if filters.EndYearMonth > 0 {
		add("(contract_year * 100 + contract_month) <= $%d", filters.EndYearMonth)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM real_trades
		WHERE %s
		ORDER BY contract_year DESC, contract_month DESC, contract_day DESC, id ASC`,
		tradeSelectColumns, strings.Join(conditions, " AND "))

	var trades []domain.RealTrade
	if err := r.db.SelectContext(ctx, &trades, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query sale trades: %w", err)
	}
	if trades == nil {
		trades = []domain.RealTrade{}
	}
	return trades, nil
}

func buildTradeWhere(filters TradeFilters) (whereClause string, args []any) {
	var conditions []string
	args = []any{}

	add := func(condition string, value any) {
		conditions = append(conditions, fmt.Sprintf(condition, len(args)+1))
		args = append(args, value)
	}

	if filters.RegionCode != "" {
		add("region_code = $%d", filters.RegionCode)
	}
	if filters.Dong != "" {
		add("dong ILIKE $%d", "%"+filters.Dong+"%")
	}
	if filters.AptName != "" {
		add("apt_name ILIKE $%d", "%"+filters.AptName+"%")
	}
	if filters.PropertyType != "" {
		add("property_type = $%d", filters.PropertyType)
	}
	if filters.RentType != "" {
		add("rent_type = $%d", filters.RentType)
	}

	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}
