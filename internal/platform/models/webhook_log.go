package models

import "encoding/json"

type WebhookLog struct {
	ID         string            `json:"id"`
	EndpointID string            `json:"endpoint_id"`
	Payload    json.RawMessage   `json:"payload,omitempty"` // JSON in DB
	Query      map[string]string `json:"query"`             // JSON in DB
	Sent       bool              `json:"sent"`
	Devices    int               `json:"devices"`
	Error      *string           `json:"error,omitempty"`
	ReceivedAt int64             `json:"received_at"`
}
