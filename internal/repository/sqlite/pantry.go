package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

var _ repository.PantryRepository = (*DB)(nil)

const pantryColumns = `id, user_id, food_name, expiry_date, full_name, created_at`

// ListPantryItems returns the user's items ordered by expiry date. Items
// with the same date keep insertion order.
func (db *DB) ListPantryItems(ctx context.Context, userID string, order model.SortOrder) ([]model.PantryItem, error) {
	// order is an enum, never user text, so it is safe to splice in.
	dir := "ASC"
	if order == model.SortDesc {
		dir = "DESC"
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+pantryColumns+` FROM pantry_items
		 WHERE user_id = ?
		 ORDER BY expiry_date `+dir+`, created_at ASC, id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pantry items for %s: %w", userID, err)
	}
	defer rows.Close()

	// Non-nil so the JSON response is [] rather than null.
	items := []model.PantryItem{}
	for rows.Next() {
		var it model.PantryItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.FoodName, &it.ExpiryDate, &it.FullName, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning pantry item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating pantry items: %w", err)
	}
	return items, nil
}

// CreatePantryItems assigns IDs and timestamps and inserts every item, or
// none of them.
func (db *DB) CreatePantryItems(ctx context.Context, items []*model.PantryItem) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning pantry insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pantry_items (`+pantryColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing pantry insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, it := range items {
		it.ID = xid.New().String()
		// Strictly increasing timestamps keep batch order on equal dates.
		it.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		if _, err := stmt.ExecContext(ctx, it.ID, it.UserID, it.FoodName, it.ExpiryDate, it.FullName, it.CreatedAt); err != nil {
			return fmt.Errorf("sqlite: inserting pantry item %q: %w", it.FoodName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing pantry insert: %w", err)
	}
	return nil
}

// DeletePantryItem deletes the row only when it belongs to userID. Someone
// else's item is reported as not found so ids can't be probed.
func (db *DB) DeletePantryItem(ctx context.Context, userID, id string) (*model.PantryItem, error) {
	var it model.PantryItem
	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM pantry_items WHERE id = ? AND user_id = ?
		 RETURNING `+pantryColumns,
		id, userID,
	).Scan(&it.ID, &it.UserID, &it.FoodName, &it.ExpiryDate, &it.FullName, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("pantry item", id)
		}
		return nil, fmt.Errorf("sqlite: deleting pantry item %s: %w", id, err)
	}
	return &it, nil
}

// PantryFoodNames returns the distinct food names in the user's pantry.
func (db *DB) PantryFoodNames(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT food_name FROM pantry_items WHERE user_id = ?
		 GROUP BY lower(food_name) ORDER BY MIN(expiry_date)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pantry names for %s: %w", userID, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning pantry name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
