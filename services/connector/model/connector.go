package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/pkg/provider"
)

type ConnectorLifecycleState string

const (
	ConnectorLifecycleStateProvisioning ConnectorLifecycleState = "provisioning"
	ConnectorLifecycleStateActive       ConnectorLifecycleState = "active"
	ConnectorLifecycleStateArchived     ConnectorLifecycleState = "archived"
)

type HealthState string

const (
	HealthStateHealthy  HealthState = "healthy"
	HealthStateDegraded HealthState = "degraded"
)

// Connector is one authorized link between a company and one external
// account on one provider. The id is supplied by the caller, never generated
// by the store, so retries can be keyed on it. Provider type and the
// (source secret, destination credential) pair are fixed for its lifetime.
type Connector struct {
	ID uuid.UUID `gorm:"primaryKey;type:uuid"`

	ProviderType            provider.Type `gorm:"not null;index"`
	SourceSecretID          string        `gorm:"not null"`
	DestinationCredentialID string        `gorm:"not null"`
	Comment                 string

	LifecycleState ConnectorLifecycleState `gorm:"not null;default:'provisioning'"`
	HealthState    HealthState             `gorm:"not null;default:'healthy'"`
	HealthReason   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Connector) TableName() string {
	return "connectors"
}

// ConnectorMetadata is the one-to-one companion record of a Connector:
// co-created and co-deleted with its parent.
type ConnectorMetadata struct {
	ConnectorID uuid.UUID `gorm:"primaryKey;type:uuid"`

	// TableType tags which destination schema variant this provider uses.
	TableType string `gorm:"not null"`

	// HistoricalCursorThreshold bounds how far back the first backfill
	// reaches: now minus 15 days at provisioning time.
	HistoricalCursorThreshold time.Time `gorm:"not null"`

	Comment string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ConnectorMetadata) TableName() string {
	return "connector_metadata"
}
