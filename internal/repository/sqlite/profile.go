package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

// UpsertProfile inserts the profile or updates username/full name in place.
// An empty Email keeps the stored one.
func (db *DB) UpsertProfile(ctx context.Context, p *model.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO profiles (id, username, full_name, email, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     username   = excluded.username,
		     full_name  = excluded.full_name,
		     email      = CASE WHEN excluded.email <> '' THEN excluded.email ELSE profiles.email END,
		     updated_at = excluded.updated_at`,
		p.ID, p.Username, p.FullName, p.Email, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "profiles.username") {
			return apperror.Conflict("username", fmt.Sprintf("Username %q is already taken", p.Username))
		}
		return fmt.Errorf("sqlite: upserting profile %s: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns apperror.ErrNotFound when the user has no profile yet.
func (db *DB) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, full_name, email, updated_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Username, &p.FullName, &p.Email, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", id)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", id, err)
	}
	return &p, nil
}
