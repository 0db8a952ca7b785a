package models

type EndpointType string

const (
	EndpointDisconnected EndpointType = "disconnected"
	EndpointSaleApproved EndpointType = "sale_approved"
	EndpointGeneric      EndpointType = "generic"
)

func (t EndpointType) Valid() bool {
	switch t {
	case EndpointDisconnected, EndpointSaleApproved, EndpointGeneric:
		return true
	}
	return false
}

// Endpoint is an inbound webhook definition owned by a single user.
// Secret is the only credential accepted on the webhook URL.
type Endpoint struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Name         string       `json:"name"`
	Type         EndpointType `json:"type"`
	Secret       string       `json:"secret"`
	GenericTitle *string      `json:"generic_title,omitempty"`
	GenericBody  *string      `json:"generic_body,omitempty"`
	CreatedAt    int64        `json:"created_at"`
	UpdatedAt    int64        `json:"updated_at"`
}
