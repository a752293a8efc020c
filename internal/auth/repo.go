package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nou-pos/nou/internal/platform/db"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Identity, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an identity by normalized email. An identity without a
// tenant user row is active; an inactive user row disables login.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (Identity, error) {
	const query = `SELECT i.id, i.email, i.password_hash, COALESCE(u.status, 'active') = 'active', i.created_at
FROM identities i
LEFT JOIN users u ON u.id = i.id
WHERE i.email = $1`
	var ident Identity
	err := r.pool.QueryRow(ctx, query, NormalizeEmail(email)).Scan(
		&ident.ID, &ident.Email, &ident.PasswordHash, &ident.Active, &ident.CreatedAt,
	)
	if err != nil {
		return Identity{}, db.Wrap("auth: find identity", err)
	}
	return ident, nil
}
