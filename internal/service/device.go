package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// DeviceService keeps push registrations current.
type DeviceService struct {
	devices repository.DeviceRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewDeviceService(devices repository.DeviceRepository, logger *slog.Logger) *DeviceService {
	return &DeviceService{devices: devices, logger: logger, now: time.Now}
}

// RegisterDeviceInput is sent by the app after sign-in.
type RegisterDeviceInput struct {
	DeviceID   string `json:"deviceId"`
	PushToken  string `json:"pushToken"`
	Platform   string `json:"platform"`
	AppVersion string `json:"appVersion"`
}

// Register upserts the (user, device) registration. The push token doubles
// as the device id when the app sends none.
func (s *DeviceService) Register(ctx context.Context, userID string, in RegisterDeviceInput) (*model.Device, error) {
	token := strings.TrimSpace(in.PushToken)
	if token == "" {
		return nil, apperror.ValidationFailed("pushToken", "Missing push token.")
	}
	deviceID := strings.TrimSpace(in.DeviceID)
	if deviceID == "" {
		deviceID = token
	}

	platform := strings.ToLower(strings.TrimSpace(in.Platform))
	switch platform {
	case model.PlatformIOS, model.PlatformAndroid, model.PlatformWeb:
	default:
		return nil, apperror.ValidationFailed("platform", "Platform must be ios, android or web.")
	}

	d := &model.Device{
		UserID:     userID,
		DeviceID:   deviceID,
		PushToken:  token,
		Platform:   platform,
		AppVersion: strings.TrimSpace(in.AppVersion),
		LastActive: s.now().UTC(),
	}
	if err := s.devices.UpsertDevice(ctx, d); err != nil {
		return nil, fmt.Errorf("service/device: registering: %w", err)
	}

	s.logger.Info("device registered",
		slog.String("user_id", userID),
		slog.String("device_id", deviceID),
		slog.String("platform", platform),
	)
	return d, nil
}

// Unregister is idempotent.
func (s *DeviceService) Unregister(ctx context.Context, userID, deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return apperror.ValidationFailed("deviceId", "Missing device id.")
	}
	if err := s.devices.DeleteDevice(ctx, userID, deviceID); err != nil {
		return fmt.Errorf("service/device: unregistering: %w", err)
	}
	return nil
}
