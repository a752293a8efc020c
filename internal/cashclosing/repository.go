package cashclosing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nou-pos/nou/internal/platform/db"
	"github.com/nou-pos/nou/internal/shared"
)

// Repository persists closings and reads the sales ledger they reconcile.
// Closings are immutable once inserted.
type Repository interface {
	Insert(ctx context.Context, c CashClosing) (CashClosing, error)
	Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (CashClosing, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]CashClosing, int, error)
	SalesTotals(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (SalesTotals, error)
	WarrantiesCount(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const closingColumns = `id, organization_id, branch_id, user_id, closing_date,
expected_cash, expected_transfer, actual_cash, actual_transfer,
cash_difference, transfer_difference, outcome,
total_sales, physical_sales, delivery_sales, total_units, cancelled_invoices, cancelled_total, warranties_count,
COALESCE(notes, ''), COALESCE(difference_reason, ''), created_at`

func scanClosing(row pgx.Row) (CashClosing, error) {
	var c CashClosing
	var outcome string
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.BranchID, &c.UserID, &c.ClosingDate,
		&c.ExpectedCash, &c.ExpectedTransfer, &c.ActualCash, &c.ActualTransfer,
		&c.CashDifference, &c.TransferDifference, &outcome,
		&c.TotalSales, &c.PhysicalSales, &c.DeliverySales, &c.TotalUnits, &c.CancelledInvoices, &c.CancelledTotal, &c.WarrantiesCount,
		&c.Notes, &c.DifferenceReason, &c.CreatedAt,
	)
	if err != nil {
		return CashClosing{}, err
	}
	c.Outcome = Outcome(outcome)
	c.CombinedDifference = c.CashDifference + c.TransferDifference
	return c, nil
}

func (r *pgRepository) Insert(ctx context.Context, c CashClosing) (CashClosing, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO cash_closings (
	organization_id, branch_id, user_id, closing_date,
	expected_cash, expected_transfer, actual_cash, actual_transfer,
	cash_difference, transfer_difference, outcome,
	total_sales, physical_sales, delivery_sales, total_units, cancelled_invoices, cancelled_total, warranties_count,
	notes, difference_reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, ''), NULLIF($20, ''), $21)
RETURNING `+closingColumns,
		c.OrganizationID, c.BranchID, c.UserID, c.ClosingDate,
		c.ExpectedCash, c.ExpectedTransfer, c.ActualCash, c.ActualTransfer,
		c.CashDifference, c.TransferDifference, string(c.Outcome),
		c.TotalSales, c.PhysicalSales, c.DeliverySales, c.TotalUnits, c.CancelledInvoices, c.CancelledTotal, c.WarrantiesCount,
		c.Notes, c.DifferenceReason, c.CreatedAt,
	)
	out, err := scanClosing(row)
	if err != nil {
		return CashClosing{}, db.Wrap("cashclosing: insert", err)
	}
	return out, nil
}

func (r *pgRepository) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (CashClosing, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+closingColumns+` FROM cash_closings
WHERE id = $1 AND organization_id = $2 AND branch_id = $3`, id, scope.OrganizationID, scope.BranchID)
	out, err := scanClosing(row)
	if err != nil {
		return CashClosing{}, db.Wrap("cashclosing: get", err)
	}
	return out, nil
}

func (r *pgRepository) List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]CashClosing, int, error) {
	where := []string{"organization_id = $1", "branch_id = $2"}
	args := []any{scope.OrganizationID, scope.BranchID}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("closing_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("closing_date <= $%d", len(args)))
	}
	if filter.Outcome != "" {
		args = append(args, string(filter.Outcome))
		where = append(where, fmt.Sprintf("outcome = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cash_closings WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, db.Wrap("cashclosing: count", err)
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM cash_closings WHERE %s
ORDER BY closing_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, closingColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, db.Wrap("cashclosing: list", err)
	}
	defer rows.Close()

	var out []CashClosing
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, 0, db.Wrap("cashclosing: scan", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Wrap("cashclosing: list", err)
	}
	return out, total, nil
}

// SalesTotals aggregates the caller's sales for the local calendar day.
func (r *pgRepository) SalesTotals(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (SalesTotals, error) {
	var t SalesTotals
	err := r.pool.QueryRow(ctx, `SELECT
	COALESCE(SUM(CASE WHEN s.status = 'completed' AND s.payment_method = 'cash' THEN s.total
	                  WHEN s.status = 'completed' AND s.payment_method = 'mixed' THEN s.cash_amount END), 0),
	COALESCE(SUM(CASE WHEN s.status = 'completed' AND s.payment_method = 'transfer' THEN s.total
	                  WHEN s.status = 'completed' AND s.payment_method = 'mixed' THEN s.transfer_amount END), 0),
	COALESCE(SUM(s.total) FILTER (WHERE s.status = 'completed'), 0),
	COALESCE(SUM(s.subtotal) FILTER (WHERE s.status = 'completed'), 0),
	COUNT(*) FILTER (WHERE s.status = 'completed' AND s.sale_type = 'physical'),
	COUNT(*) FILTER (WHERE s.status = 'completed' AND s.sale_type = 'delivery'),
	COALESCE(SUM(s.units) FILTER (WHERE s.status = 'completed'), 0),
	COUNT(*) FILTER (WHERE s.status = 'cancelled'),
	COALESCE(SUM(s.total) FILTER (WHERE s.status = 'cancelled'), 0),
	COALESCE(bool_or(b.is_vat_responsible), false)
FROM branches b
LEFT JOIN sales s ON s.branch_id = b.id
	AND s.user_id = $3
	AND (s.created_at AT TIME ZONE $5)::date = $4::date
WHERE b.id = $2 AND b.organization_id = $1`,
		scope.OrganizationID, scope.BranchID, scope.UserID, day.Format(DateLayout), loc.String(),
	).Scan(
		&t.CashTotal, &t.TransferTotal, &t.CompletedTotal, &t.Subtotal,
		&t.PhysicalSales, &t.DeliverySales, &t.TotalUnits,
		&t.CancelledInvoices, &t.CancelledTotal, &t.VATResponsible,
	)
	if err != nil {
		return SalesTotals{}, db.Wrap("cashclosing: sales totals", err)
	}
	return t, nil
}

func (r *pgRepository) WarrantiesCount(ctx context.Context, scope shared.Scope, day time.Time, loc *time.Location) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warranties
WHERE organization_id = $1 AND branch_id = $2 AND (created_at AT TIME ZONE $4)::date = $3::date`,
		scope.OrganizationID, scope.BranchID, day.Format(DateLayout), loc.String(),
	).Scan(&n)
	if err != nil {
		return 0, db.Wrap("cashclosing: warranties count", err)
	}
	return n, nil
}
