package model

import (
	"time"

	"github.com/google/uuid"
)

// CompanyDatabase maps a company to the database holding that company's raw
// ingested data. The credential id is what connectors reference; the DSN is
// resolved from it when a destination handle is needed.
type CompanyDatabase struct {
	CredentialID uuid.UUID `gorm:"primaryKey;type:uuid"`

	CompanyID string `gorm:"not null;uniqueIndex"`
	DSN       string `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CompanyDatabase) TableName() string {
	return "company_databases"
}
