package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

var _ repository.NotificationRepository = (*DB)(nil)

// ListPendingExpiry returns pantry items that need an expiry push, grouped
// by user (rows for one user are adjacent) and ordered by expiry date.
//
// Both dates are YYYY-MM-DD strings; text comparison equals date order.
func (db *DB) ListPendingExpiry(ctx context.Context, today, cutoff string) ([]model.ExpiringItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.food_name, p.expiry_date, p.full_name, p.created_at, k.kind
		 FROM pantry_items p
		 JOIN (SELECT id, CASE WHEN expiry_date < ? THEN 'expired' ELSE 'expiring' END AS kind
		       FROM pantry_items) k ON k.id = p.id
		 WHERE p.expiry_date <= ?
		   AND NOT EXISTS (
		       SELECT 1 FROM expiry_notifications n
		       WHERE n.pantry_item_id = p.id AND n.kind = k.kind
		   )
		 ORDER BY p.user_id, p.expiry_date, p.created_at`,
		today, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pending expiry items: %w", err)
	}
	defer rows.Close()

	var items []model.ExpiringItem
	for rows.Next() {
		var it model.ExpiringItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.FoodName, &it.ExpiryDate, &it.FullName, &it.CreatedAt, &it.Kind); err != nil {
			return nil, fmt.Errorf("sqlite: scanning expiring item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating expiring items: %w", err)
	}
	return items, nil
}

// RecordNotification stores a sent notification. Recording the same
// (item, kind) twice keeps the first row.
func (db *DB) RecordNotification(ctx context.Context, n *model.ExpiryNotification) error {
	if n.ID == "" {
		n.ID = ulid.Make().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO expiry_notifications (id, user_id, pantry_item_id, kind, sent_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(pantry_item_id, kind) DO NOTHING`,
		n.ID, n.UserID, n.PantryItemID, n.Kind, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording %s notification for %s: %w", n.Kind, n.PantryItemID, err)
	}
	return nil
}
