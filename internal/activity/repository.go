package activity

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nou-pos/nou/internal/platform/db"
)

// Repository persists and reads activity rows.
type Repository interface {
	Insert(ctx context.Context, e Entry, at time.Time) error
	List(ctx context.Context, organizationID uuid.UUID, f ListFilter, limit, offset int) ([]Activity, int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Insert(ctx context.Context, e Entry, at time.Time) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	var entityID *string
	if e.EntityID != "" {
		entityID = &e.EntityID
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO activities
(organization_id, branch_id, user_id, actor_type, action, entity_type, entity_id, summary, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.OrganizationID, e.BranchID, e.UserID, string(e.ActorType), e.Action, e.EntityType, entityID, e.Summary, meta, at)
	return db.Wrap("activity: insert", err)
}

func (r *pgRepository) List(ctx context.Context, organizationID uuid.UUID, f ListFilter, limit, offset int) ([]Activity, int, error) {
	where := ` WHERE organization_id = $1`
	args := []any{organizationID}
	if f.BranchID != nil {
		args = append(args, *f.BranchID)
		where += ` AND branch_id = $` + strconv.Itoa(len(args))
	}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		where += ` AND entity_type = $` + strconv.Itoa(len(args))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		where += ` AND action = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.Wrap("activity: count", err)
	}

	args = append(args, limit, offset)
	query := `SELECT id, organization_id, branch_id, user_id, actor_type, action, entity_type, COALESCE(entity_id, ''), summary, metadata, created_at
FROM activities` + where + ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Wrap("activity: list", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var actor string
		var meta []byte
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.BranchID, &a.UserID, &actor, &a.Action,
			&a.EntityType, &a.EntityID, &a.Summary, &meta, &a.CreatedAt); err != nil {
			return nil, 0, db.Wrap("activity: scan", err)
		}
		a.ActorType = ActorType(actor)
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &a.Metadata)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.Wrap("activity: rows", err)
	}
	return out, total, nil
}

func (r *pgRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, db.Wrap("activity: purge", err)
	}
	return tag.RowsAffected(), nil
}
