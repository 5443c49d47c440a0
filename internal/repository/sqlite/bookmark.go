package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

var _ repository.BookmarkRepository = (*DB)(nil)

// ListBookmarks returns the user's bookmarks, newest first.
func (db *DB) ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, recipe_id, created_at FROM personal_bookmark
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bookmarks for %s: %w", userID, err)
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		var b model.Bookmark
		if err := rows.Scan(&b.UserID, &b.RecipeID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (db *DB) IsBookmarked(ctx context.Context, userID, recipeID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM personal_bookmark WHERE user_id = ? AND recipe_id = ?)`,
		userID, recipeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking bookmark %s/%s: %w", userID, recipeID, err)
	}
	return exists, nil
}

// AddBookmark is idempotent: bookmarking twice keeps the first row.
func (db *DB) AddBookmark(ctx context.Context, userID, recipeID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO personal_bookmark (user_id, recipe_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, recipe_id) DO NOTHING`,
		userID, recipeID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding bookmark %s/%s: %w", userID, recipeID, err)
	}
	return nil
}

// RemoveBookmark reports whether a row was deleted. Missing bookmarks are
// not an error.
func (db *DB) RemoveBookmark(ctx context.Context, userID, recipeID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM personal_bookmark WHERE user_id = ? AND recipe_id = ?`,
		userID, recipeID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing bookmark %s/%s: %w", userID, recipeID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}
