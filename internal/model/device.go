package model

import "time"

// Device is a push-capable app installation. One row per (UserID, DeviceID);
// the latest registration wins.
type Device struct {
	UserID     string    `json:"userId"`
	DeviceID   string    `json:"deviceId"`
	PushToken  string    `json:"pushToken"`
	Platform   string    `json:"platform"`
	AppVersion string    `json:"appVersion"`
	LastActive time.Time `json:"lastActive"`
}

// Supported device platforms.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
