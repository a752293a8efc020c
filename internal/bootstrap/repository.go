package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nou-pos/nou/internal/platform/db"
	"github.com/nou-pos/nou/internal/shared"
	"github.com/nou-pos/nou/internal/tenancy"
)

// Repository persists bootstrap writes. Each method is one transaction.
type Repository interface {
	MemberRole(ctx context.Context, userID, organizationID uuid.UUID) (shared.Role, bool, error)
	UserOrganization(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)
	// CreateAccount inserts the identity and user rows. With a membership it
	// fails with ErrUserLimit when the organization is full; the count and
	// the insert share one transaction.
	CreateAccount(ctx context.Context, acct NewAccount) error
	CreateOrganization(ctx context.Context, org tenancy.Organization, owner tenancy.User) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) MemberRole(ctx context.Context, userID, organizationID uuid.UUID) (shared.Role, bool, error) {
	var role string
	err := r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 AND organization_id = $2 AND status = 'active'`, userID, organizationID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, db.Wrap("bootstrap: member role", err)
	}
	return shared.Role(role), true, nil
}

func (r *pgRepository) UserOrganization(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var org *uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT organization_id FROM users WHERE id = $1`, userID).Scan(&org)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.Wrap("bootstrap: user organization", err)
	}
	return org, nil
}

// lockCapacity locks the organization row so concurrent inserts into the
// same tenant serialize, then compares its user count to the plan cap.
func lockCapacity(ctx context.Context, tx pgx.Tx, organizationID uuid.UUID) error {
	var max int
	err := tx.QueryRow(ctx, `SELECT max_users FROM organizations WHERE id = $1 FOR UPDATE`, organizationID).Scan(&max)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bootstrap: %w: organization not found", shared.ErrValidation)
	}
	if err != nil {
		return db.Wrap("bootstrap: lock organization", err)
	}
	if max <= 0 {
		return nil
	}
	var current int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE organization_id = $1`, organizationID).Scan(&current); err != nil {
		return db.Wrap("bootstrap: count users", err)
	}
	if current >= max {
		return ErrUserLimit
	}
	return nil
}

func (r *pgRepository) CreateAccount(ctx context.Context, acct NewAccount) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if acct.Member != nil {
			if err := lockCapacity(ctx, tx, acct.Member.OrganizationID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `INSERT INTO identities (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
			acct.ID, acct.Email, acct.PasswordHash, acct.CreatedAt); err != nil {
			return db.Wrap("bootstrap: insert identity", err)
		}
		var orgID *uuid.UUID
		role := shared.RoleOwner
		if acct.Member != nil {
			orgID = &acct.Member.OrganizationID
			role = acct.Member.Role
		}
		if _, err := tx.Exec(ctx, `INSERT INTO users (id, organization_id, email, name, role, status, created_at)
VALUES ($1, $2, $3, $4, $5, 'active', $6)`, acct.ID, orgID, acct.Email, acct.Name, string(role), acct.CreatedAt); err != nil {
			return db.Wrap("bootstrap: insert user", err)
		}
		if acct.Member == nil || len(acct.Member.BranchIDs) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `INSERT INTO user_branches (user_id, branch_id)
SELECT $1, b.id FROM branches b WHERE b.organization_id = $2 AND b.id = ANY($3)`,
			acct.ID, acct.Member.OrganizationID, acct.Member.BranchIDs)
		if err != nil {
			return db.Wrap("bootstrap: link branches", err)
		}
		if int(tag.RowsAffected()) != len(acct.Member.BranchIDs) {
			return fmt.Errorf("bootstrap: %w: branch outside organization", shared.ErrValidation)
		}
		return nil
	})
}

func (r *pgRepository) CreateOrganization(ctx context.Context, org tenancy.Organization, owner tenancy.User) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO organizations (id, name, plan, max_branches, max_users, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`, org.ID, org.Name, string(org.Plan), org.MaxBranches, org.MaxUsers, org.CreatedAt); err != nil {
			return db.Wrap("bootstrap: insert organization", err)
		}
		tag, err := tx.Exec(ctx, `INSERT INTO users (id, organization_id, email, name, role, status, created_at)
VALUES ($1, $2, $3, $4, $5, 'active', $6)
ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id, role = EXCLUDED.role
WHERE users.organization_id IS NULL`,
			owner.ID, org.ID, owner.Email, owner.Name, string(shared.RoleOwner), org.CreatedAt)
		if err != nil {
			return db.Wrap("bootstrap: attach owner", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("bootstrap: %w: user already belongs to an organization", shared.ErrDuplicate)
		}
		return nil
	})
}
