package entity

import (
	"encoding/json"
	"time"
)

type CreateConnectorRequest struct {
	ProviderType string          `json:"provider_type" validate:"required"`
	Credentials  json.RawMessage `json:"credentials" validate:"required"`
	Comment      string          `json:"comment"`
}

type UpdateCredentialsRequest struct {
	Credentials json.RawMessage `json:"credentials" validate:"required"`
}

type Connector struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"company_id,omitempty"`
	ProviderType   string    `json:"provider_type"`
	LifecycleState string    `json:"lifecycle_state"`
	HealthState    string    `json:"health_state"`
	HealthReason   *string   `json:"health_reason,omitempty"`
	Comment        string    `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ConnectorWithMetadata struct {
	Connector
	TableType                 string    `json:"table_type"`
	HistoricalCursorThreshold time.Time `json:"historical_cursor_threshold"`
}

type AccountExistsResponse struct {
	Exists bool `json:"exists"`
}

type Error struct {
	Message string `json:"message"`
}

func NewError(err error) Error {
	if err == nil {
		return Error{Message: "unknown error"}
	}
	return Error{Message: err.Error()}
}
