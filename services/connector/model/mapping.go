package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/adboard-io/adboard-engine/pkg/provider"
)

// CompanyConnectorMapping routes a (company, provider type) pair to a
// connector. ExtraInfo is an opaque JSON bag of provider-specific details
// (e.g. the external account id) used for already-connected checks and
// display. The schema deliberately carries no uniqueness constraint on
// (company_id, provider_type): duplicate mappings are a data-integrity fault
// that the singleton lookups surface instead of silently resolving.
type CompanyConnectorMapping struct {
	ID uint `gorm:"primaryKey"`

	CompanyID    string        `gorm:"not null;index"`
	ConnectorID  uuid.UUID     `gorm:"not null;type:uuid;index"`
	ProviderType provider.Type `gorm:"not null"`
	Comment      string
	ExtraInfo    datatypes.JSON `gorm:"default:'{}'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CompanyConnectorMapping) TableName() string {
	return "company_connector_mappings"
}
