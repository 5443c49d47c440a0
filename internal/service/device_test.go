package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kitchi/internal/apperror"
)

func TestDeviceRegister(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc := NewDeviceService(repo, discardLogger())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return now }

	d, err := svc.Register(context.Background(), "alice", RegisterDeviceInput{
		DeviceID:   "pixel-8",
		PushToken:  "ExponentPushToken[abc]",
		Platform:   "Android",
		AppVersion: "1.2.0",
	})
	require.NoError(t, err)

	assert.Equal(t, "android", d.Platform)
	assert.Equal(t, now, d.LastActive)
	assert.Contains(t, repo.devices, "alice/pixel-8")
}

func TestDeviceRegister_TokenDoublesAsDeviceID(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc := NewDeviceService(repo, discardLogger())

	d, err := svc.Register(context.Background(), "alice", RegisterDeviceInput{PushToken: "tok", Platform: "ios"})
	require.NoError(t, err)
	assert.Equal(t, "tok", d.DeviceID)
}

func TestDeviceRegister_LastWriteWins(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc := NewDeviceService(repo, discardLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", RegisterDeviceInput{DeviceID: "d", PushToken: "old", Platform: "ios"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", RegisterDeviceInput{DeviceID: "d", PushToken: "new", Platform: "ios"})
	require.NoError(t, err)

	assert.Len(t, repo.devices, 1)
	assert.Equal(t, "new", repo.devices["alice/d"].PushToken)
}

func TestDeviceRegister_Validation(t *testing.T) {
	svc := NewDeviceService(newFakeDeviceRepo(), discardLogger())

	_, err := svc.Register(context.Background(), "alice", RegisterDeviceInput{Platform: "ios"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = svc.Register(context.Background(), "alice", RegisterDeviceInput{PushToken: "t", Platform: "palm"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestDeviceUnregister(t *testing.T) {
	repo := newFakeDeviceRepo()
	svc := NewDeviceService(repo, discardLogger())

	require.NoError(t, svc.Unregister(context.Background(), "alice", "d"))
	assert.Equal(t, []string{"alice/d"}, repo.deleted)

	err := svc.Unregister(context.Background(), "alice", " ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}
