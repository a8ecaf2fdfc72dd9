package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumahq/luma/internal/authz"
	"github.com/lumahq/luma/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for staff records and
// their override logs. Overrides live in an append-only table keyed by
// (staff_id, position) so the stored relative order is stable; the staff
// row carries a version column for optimistic concurrency.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const staffColumns = `id, tenant_id, name, email, role, is_active, version, created_at, updated_at`

// GetStaff loads one staff member with the full override log in stored order.
func (r *Repository) GetStaff(ctx context.Context, id uuid.UUID) (Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("staff: get: %w", err)
	}
	overrides, err := r.listOverrides(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	profile.Overrides = overrides
	return profile, nil
}

// ListStaff returns all staff for a tenant ordered by name. Override logs are
// not loaded; callers needing permissions fetch members individually.
func (r *Repository) ListStaff(ctx context.Context, tenantID uuid.UUID) ([]Profile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+staffColumns+` FROM staff WHERE tenant_id = $1 ORDER BY name, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("staff: list: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("staff: list scan: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staff: list rows: %w", err)
	}
	return profiles, nil
}

// AppendOverride atomically appends one override to the staff member's log.
// expectedVersion must match the version the caller read; a mismatch returns
// ErrVersionConflict so two concurrent edits append two overrides instead of
// one clobbering the other.
func (r *Repository) AppendOverride(ctx context.Context, staffID uuid.UUID, o authz.PermissionOverride, expectedVersion int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE staff SET version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $2`,
			staffID, expectedVersion)
		if err != nil {
			return fmt.Errorf("staff: bump version: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM staff WHERE id = $1)`, staffID).Scan(&exists); err != nil {
				return fmt.Errorf("staff: version check: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO permission_overrides (id, staff_id, position, resource, action, granted, granted_by, reason, occurred_at)
			 VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM permission_overrides WHERE staff_id = $2), $3, $4, $5, $6, $7, $8)`,
			o.ID, staffID, o.Resource, o.Action, o.Granted, o.GrantedBy, o.Reason, o.Timestamp)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrVersionConflict
			}
			return fmt.Errorf("staff: insert override: %w", err)
		}
		return nil
	})
}

func (r *Repository) listOverrides(ctx context.Context, staffID uuid.UUID) ([]authz.PermissionOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, resource, action, granted, granted_by, reason, occurred_at
		 FROM permission_overrides WHERE staff_id = $1 ORDER BY position`, staffID)
	if err != nil {
		return nil, fmt.Errorf("staff: list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []authz.PermissionOverride
	for rows.Next() {
		var o authz.PermissionOverride
		if err := rows.Scan(&o.ID, &o.Resource, &o.Action, &o.Granted, &o.GrantedBy, &o.Reason, &o.Timestamp); err != nil {
			return nil, fmt.Errorf("staff: scan override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staff: override rows: %w", err)
	}
	return overrides, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Email, &p.Role, &p.Active, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
