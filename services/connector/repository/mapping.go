package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/services/connector/db"
	"github.com/adboard-io/adboard-engine/services/connector/model"
)

type Mapping interface {
	ResolveConnectorID(ctx context.Context, companyID string, providerType provider.Type) (uuid.UUID, error)
	ListByCompanyAndType(ctx context.Context, companyID string, providerType provider.Type) ([]model.CompanyConnectorMapping, error)
	ListByCompany(ctx context.Context, companyID string) ([]model.CompanyConnectorMapping, error)
	ListByConnectorID(ctx context.Context, connectorID uuid.UUID) ([]model.CompanyConnectorMapping, error)
}

type MappingSQL struct {
	db db.Database
}

func NewMappingSQL(db db.Database) Mapping {
	return MappingSQL{db: db}
}

// ResolveConnectorID asserts that exactly one mapping row exists for the
// (company, provider) pair. A duplicate mapping is a data-integrity fault
// and is surfaced as an error.
func (s MappingSQL) ResolveConnectorID(ctx context.Context, companyID string, providerType provider.Type) (uuid.UUID, error) {
	mappings, err := s.ListByCompanyAndType(ctx, companyID, providerType)
	if err != nil {
		return uuid.Nil, err
	}

	switch len(mappings) {
	case 0:
		return uuid.Nil, ErrRecordNotFound
	case 1:
		return mappings[0].ConnectorID, nil
	default:
		return uuid.Nil, fmt.Errorf("resolve connector for company %s provider %s: %w",
			companyID, providerType, ErrAmbiguousResult)
	}
}

func (s MappingSQL) ListByCompanyAndType(ctx context.Context, companyID string, providerType provider.Type) ([]model.CompanyConnectorMapping, error) {
	var mappings []model.CompanyConnectorMapping

	tx := s.db.DB.WithContext(ctx).
		Find(&mappings, "company_id = ? AND provider_type = ?", companyID, providerType)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return mappings, nil
}

func (s MappingSQL) ListByConnectorID(ctx context.Context, connectorID uuid.UUID) ([]model.CompanyConnectorMapping, error) {
	var mappings []model.CompanyConnectorMapping

	tx := s.db.DB.WithContext(ctx).
		Find(&mappings, "connector_id = ?", connectorID.String())
	if tx.Error != nil {
		return nil, tx.Error
	}

	return mappings, nil
}

func (s MappingSQL) ListByCompany(ctx context.Context, companyID string) ([]model.CompanyConnectorMapping, error) {
	var mappings []model.CompanyConnectorMapping

	tx := s.db.DB.WithContext(ctx).
		Find(&mappings, "company_id = ?", companyID)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return mappings, nil
}
