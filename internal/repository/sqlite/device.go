package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

var _ repository.DeviceRepository = (*DB)(nil)

// UpsertDevice registers or refreshes a device. Last write wins.
func (db *DB) UpsertDevice(ctx context.Context, d *model.Device) error {
	if d.LastActive.IsZero() {
		d.LastActive = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_devices (user_id, device_id, expo_token, platform, app_version, last_active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET
		     expo_token  = excluded.expo_token,
		     platform    = excluded.platform,
		     app_version = excluded.app_version,
		     last_active = excluded.last_active`,
		d.UserID, d.DeviceID, d.PushToken, d.Platform, d.AppVersion, d.LastActive,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting device %s/%s: %w", d.UserID, d.DeviceID, err)
	}
	return nil
}

// DeleteDevice is idempotent.
func (db *DB) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM user_devices WHERE user_id = ? AND device_id = ?`, userID, deviceID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting device %s/%s: %w", userID, deviceID, err)
	}
	return nil
}

func (db *DB) ListDevicesByUser(ctx context.Context, userID string) ([]model.Device, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, device_id, expo_token, platform, app_version, last_active
		 FROM user_devices WHERE user_id = ? ORDER BY last_active DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing devices for %s: %w", userID, err)
	}
	defer rows.Close()

	devices := []model.Device{}
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.UserID, &d.DeviceID, &d.PushToken, &d.Platform, &d.AppVersion, &d.LastActive); err != nil {
			return nil, fmt.Errorf("sqlite: scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating devices: %w", err)
	}
	return devices, nil
}

// DeleteDevicesByToken drops every registration using pushToken, across
// users. Used when the push service reports the token as unregistered.
func (db *DB) DeleteDevicesByToken(ctx context.Context, pushToken string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM user_devices WHERE expo_token = ?`, pushToken)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting devices by token: %w", err)
	}
	return res.RowsAffected()
}

// DeleteStaleDevices removes registrations not refreshed since before.
func (db *DB) DeleteStaleDevices(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM user_devices WHERE last_active < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting stale devices: %w", err)
	}
	return res.RowsAffected()
}
