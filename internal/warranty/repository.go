package warranty

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

// Repository is the persistence port of the warranty engine. Every method is
// constrained to one organization and branch.
type Repository interface {
	Insert(ctx context.Context, w Warranty) (Warranty, error)
	Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error)
	GetDetail(ctx context.Context, scope shared.Scope, id uuid.UUID) (Detail, error)
	// Transition moves a claim from one status to another in a single
	// conditional update. It returns ErrNotFound when no row matched.
	Transition(ctx context.Context, scope shared.Scope, id uuid.UUID, from, to Status, review *Review, at time.Time) (Warranty, error)
	List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]Warranty, int, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const warrantyColumns = `w.id, w.organization_id, w.branch_id, w.sale_id, w.sale_item_id, w.customer_id, w.product_id,
w.replacement_product_id, w.quantity, w.warranty_type, w.reason, w.status, w.requested_by,
w.reviewed_by, w.reviewed_at, w.rejection_reason, w.created_at, w.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarranty(row rowScanner, extra ...any) (Warranty, error) {
	var w Warranty
	var typ, status string
	dest := []any{
		&w.ID, &w.OrganizationID, &w.BranchID, &w.SaleID, &w.SaleItemID, &w.CustomerID, &w.ProductID,
		&w.ReplacementProductID, &w.Quantity, &typ, &w.Reason, &status, &w.RequestedBy,
		&w.ReviewedBy, &w.ReviewedAt, &w.RejectionReason, &w.CreatedAt, &w.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Warranty{}, err
	}
	w.Type = Type(typ)
	w.Status = Status(status)
	return w, nil
}

func (r *pgRepository) Insert(ctx context.Context, w Warranty) (Warranty, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO warranties AS w (organization_id, branch_id, sale_id, sale_item_id, customer_id, product_id,
replacement_product_id, quantity, warranty_type, reason, status, requested_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
RETURNING `+warrantyColumns,
		w.OrganizationID, w.BranchID, w.SaleID, w.SaleItemID, w.CustomerID, w.ProductID,
		w.ReplacementProductID, w.Quantity, string(w.Type), w.Reason, string(w.Status), w.RequestedBy, w.CreatedAt)
	out, err := scanWarranty(row)
	if err != nil {
		return Warranty{}, db.Wrap("warranty: insert", err)
	}
	return out, nil
}

func (r *pgRepository) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (Warranty, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+warrantyColumns+` FROM warranties w
WHERE w.id = $1 AND w.organization_id = $2 AND w.branch_id = $3`, id, scope.OrganizationID, scope.BranchID)
	out, err := scanWarranty(row)
	if err != nil {
		return Warranty{}, db.Wrap("warranty: get", err)
	}
	return out, nil
}

func (r *pgRepository) GetDetail(ctx context.Context, scope shared.Scope, id uuid.UUID) (Detail, error) {
	var (
		d                 Detail
		customer, product *string
		saleID            *uuid.UUID
		invoice           *string
		saleAt            *time.Time
	)
	row := r.pool.QueryRow(ctx, `SELECT `+warrantyColumns+`,
	c.name, p.name, rp.name, s.id, s.invoice_number, s.created_at, u.name
FROM warranties w
LEFT JOIN customers c ON c.id = w.customer_id
LEFT JOIN products p ON p.id = w.product_id
LEFT JOIN products rp ON rp.id = w.replacement_product_id
LEFT JOIN sales s ON s.id = w.sale_id
LEFT JOIN users u ON u.id = w.reviewed_by
WHERE w.id = $1 AND w.organization_id = $2 AND w.branch_id = $3`, id, scope.OrganizationID, scope.BranchID)
	w, err := scanWarranty(row, &customer, &product, &d.ReplacementProductName, &saleID, &invoice, &saleAt, &d.ReviewerName)
	if err != nil {
		return Detail{}, db.Wrap("warranty: detail", err)
	}
	d.Warranty = w
	if customer != nil {
		d.CustomerName = *customer
	}
	if product != nil {
		d.ProductName = *product
	}
	if saleID != nil {
		ref := SaleRef{ID: *saleID}
		if invoice != nil {
			ref.InvoiceNumber = *invoice
		}
		if saleAt != nil {
			ref.CreatedAt = *saleAt
		}
		d.Sale = &ref
	}
	return d, nil
}

func (r *pgRepository) Transition(ctx context.Context, scope shared.Scope, id uuid.UUID, from, to Status, review *Review, at time.Time) (Warranty, error) {
	args := []any{id, scope.OrganizationID, scope.BranchID, string(from), string(to), at}
	set := []string{"status = $5", "updated_at = $6"}
	if review != nil {
		args = append(args, review.By, review.At)
		set = append(set, fmt.Sprintf("reviewed_by = $%d", len(args)-1), fmt.Sprintf("reviewed_at = $%d", len(args)))
		if review.RejectionReason != nil {
			args = append(args, *review.RejectionReason)
			set = append(set, fmt.Sprintf("rejection_reason = $%d", len(args)))
		}
	}
	query := `UPDATE warranties AS w SET ` + strings.Join(set, ", ") + `
WHERE w.id = $1 AND w.organization_id = $2 AND w.branch_id = $3 AND w.status = $4
RETURNING ` + warrantyColumns
	out, err := scanWarranty(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return Warranty{}, db.Wrap("warranty: transition", err)
	}
	return out, nil
}

func (r *pgRepository) List(ctx context.Context, scope shared.Scope, filter ListFilter, limit, offset int) ([]Warranty, int, error) {
	where := []string{"w.organization_id = $1", "w.branch_id = $2"}
	args := []any{scope.OrganizationID, scope.BranchID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("w.status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("w.warranty_type = $%d", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warranties w WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, db.Wrap("warranty: count", err)
	}

	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM warranties w WHERE %s
ORDER BY w.created_at DESC, w.id DESC LIMIT $%d OFFSET $%d`, warrantyColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, db.Wrap("warranty: list", err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Warranty, error) {
		return scanWarranty(row)
	})
	if err != nil {
		return nil, 0, db.Wrap("warranty: list", err)
	}
	return out, total, nil
}
