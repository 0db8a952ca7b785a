package models

// PushSubscription is one browser/device delivery target. (UserID, Endpoint) is unique.
type PushSubscription struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Endpoint  string  `json:"endpoint"`
	P256dh    string  `json:"p256dh"`
	Auth      string  `json:"auth"`
	UserAgent *string `json:"user_agent,omitempty"`
	DeviceID  *string `json:"device_id,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}
