package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nou-pos/nou/internal/platform/db"
	"github.com/nou-pos/nou/internal/shared"
)

// Repository is the persistence port for tenancy lookups.
type Repository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (User, error)
	GetOrganization(ctx context.Context, organizationID uuid.UUID) (Organization, error)
	FirstBranch(ctx context.Context, organizationID uuid.UUID) (Branch, error)
	GetBranch(ctx context.Context, organizationID, branchID uuid.UUID) (Branch, error)
	UserHasBranch(ctx context.Context, userID, branchID uuid.UUID) (bool, error)
	FirstUserBranch(ctx context.Context, organizationID, userID uuid.UUID) (Branch, error)
	ListBranches(ctx context.Context, organizationID uuid.UUID) ([]Branch, error)
	CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error)
	InsertBranch(ctx context.Context, b Branch) (Branch, error)
	UpdateBranchLogo(ctx context.Context, organizationID, branchID uuid.UUID, url string) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const branchColumns = `id, organization_id, name, COALESCE(tax_id, ''), COALESCE(address, ''), COALESCE(phone, ''), is_vat_responsible, COALESCE(logo_url, ''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranch(row rowScanner) (Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.TaxID, &b.Address, &b.Phone, &b.IsVATResponsible, &b.LogoURL, &b.CreatedAt)
	return b, err
}

func (r *pgRepository) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	var u User
	var role, status string
	err := r.pool.QueryRow(ctx, `SELECT id, organization_id, email, name, role, status FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Name, &role, &status)
	if err != nil {
		return User{}, db.Wrap("tenancy: get user", err)
	}
	u.Role = shared.Role(role)
	u.Status = UserStatus(status)
	return u, nil
}

func (r *pgRepository) GetOrganization(ctx context.Context, organizationID uuid.UUID) (Organization, error) {
	var o Organization
	var plan string
	err := r.pool.QueryRow(ctx, `SELECT id, name, plan, max_branches, max_users, created_at FROM organizations WHERE id = $1`, organizationID).
		Scan(&o.ID, &o.Name, &plan, &o.MaxBranches, &o.MaxUsers, &o.CreatedAt)
	if err != nil {
		return Organization{}, db.Wrap("tenancy: get organization", err)
	}
	o.Plan = Plan(plan)
	return o, nil
}

func (r *pgRepository) FirstBranch(ctx context.Context, organizationID uuid.UUID) (Branch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE organization_id = $1 ORDER BY created_at ASC, id ASC LIMIT 1`, organizationID)
	b, err := scanBranch(row)
	if err != nil {
		return Branch{}, db.Wrap("tenancy: first branch", err)
	}
	return b, nil
}

func (r *pgRepository) GetBranch(ctx context.Context, organizationID, branchID uuid.UUID) (Branch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE organization_id = $1 AND id = $2`, organizationID, branchID)
	b, err := scanBranch(row)
	if err != nil {
		return Branch{}, db.Wrap("tenancy: get branch", err)
	}
	return b, nil
}

func (r *pgRepository) UserHasBranch(ctx context.Context, userID, branchID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_branches WHERE user_id = $1 AND branch_id = $2)`, userID, branchID).Scan(&ok)
	if err != nil {
		return false, db.Wrap("tenancy: user branch", err)
	}
	return ok, nil
}

func (r *pgRepository) FirstUserBranch(ctx context.Context, organizationID, userID uuid.UUID) (Branch, error) {
	row := r.pool.QueryRow(ctx, `SELECT b.id, b.organization_id, b.name, COALESCE(b.tax_id, ''), COALESCE(b.address, ''), COALESCE(b.phone, ''), b.is_vat_responsible, COALESCE(b.logo_url, ''), b.created_at
FROM branches b
JOIN user_branches ub ON ub.branch_id = b.id
WHERE b.organization_id = $1 AND ub.user_id = $2
ORDER BY b.created_at ASC, b.id ASC
LIMIT 1`, organizationID, userID)
	b, err := scanBranch(row)
	if err != nil {
		return Branch{}, db.Wrap("tenancy: first user branch", err)
	}
	return b, nil
}

func (r *pgRepository) ListBranches(ctx context.Context, organizationID uuid.UUID) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+branchColumns+` FROM branches WHERE organization_id = $1 ORDER BY created_at ASC, id ASC`, organizationID)
	if err != nil {
		return nil, db.Wrap("tenancy: list branches", err)
	}
	defer rows.Close()

	branches := []Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, db.Wrap("tenancy: scan branch", err)
		}
		branches = append(branches, b)
	}
	return branches, db.Wrap("tenancy: list branches", rows.Err())
}

func (r *pgRepository) CountBranches(ctx context.Context, organizationID uuid.UUID) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM branches WHERE organization_id = $1`, organizationID).Scan(&n); err != nil {
		return 0, db.Wrap("tenancy: count branches", err)
	}
	return n, nil
}

func (r *pgRepository) InsertBranch(ctx context.Context, b Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO branches (organization_id, name, tax_id, address, phone, is_vat_responsible)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
RETURNING `+branchColumns,
		b.OrganizationID, b.Name, b.TaxID, b.Address, b.Phone, b.IsVATResponsible)
	out, err := scanBranch(row)
	if err != nil {
		return Branch{}, db.Wrap("tenancy: insert branch", err)
	}
	return out, nil
}

func (r *pgRepository) UpdateBranchLogo(ctx context.Context, organizationID, branchID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE branches SET logo_url = $3 WHERE organization_id = $1 AND id = $2`, organizationID, branchID, url)
	if err != nil {
		return db.Wrap("tenancy: update logo", err)
	}
	if tag.RowsAffected() == 0 {
		return db.Wrap("tenancy: update logo", pgx.ErrNoRows)
	}
	return nil
}
