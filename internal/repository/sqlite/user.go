package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, github_id, created_at, updated_at`

// CreateUser inserts an email/password account. Email is stored lowercased.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.GitHubID, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email", "User already registered")
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail looks up a user case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// UpsertGitHubUser returns the user linked to githubID.
//
// Lookup order:
//  1. an existing GitHub link
//  2. an email account with the same address, which then gets linked
//  3. a brand new account
//
// GitHub may hide the email; new accounts then get a placeholder address
// so the users.email UNIQUE NOT NULL constraint still holds.
func (db *DB) UpsertGitHubUser(ctx context.Context, githubID int64, email string) (*model.User, bool, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)
	u, err := scanUser(row)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("sqlite: looking up user by github_id %d: %w", githubID, err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email != "" {
		existing, err := db.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			existing.GitHubID = &githubID
			existing.UpdatedAt = time.Now().UTC()
			if _, err := db.conn.ExecContext(ctx,
				`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
				githubID, existing.UpdatedAt, existing.ID,
			); err != nil {
				return nil, false, fmt.Errorf("sqlite: linking github_id %d to user %s: %w", githubID, existing.ID, err)
			}
			return existing, false, nil
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, false, err
		}
	} else {
		email = fmt.Sprintf("github-%d@users.noreply.github.com", githubID)
	}

	user := &model.User{Email: email, GitHubID: &githubID}
	if err := db.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// DeleteUser removes the account. Profile, pantry, bookmarks and devices
// cascade.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &githubID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	return &u, nil
}
