package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/services/connector/db"
	"github.com/adboard-io/adboard-engine/services/connector/model"
)

type Company interface {
	GetDatabase(ctx context.Context, companyID string) (*model.CompanyDatabase, error)
	GetDatabaseByCredential(ctx context.Context, credentialID uuid.UUID) (*model.CompanyDatabase, error)
}

type CompanySQL struct {
	db db.Database
}

func NewCompanySQL(db db.Database) Company {
	return CompanySQL{db: db}
}

func (s CompanySQL) GetDatabase(ctx context.Context, companyID string) (*model.CompanyDatabase, error) {
	var records []model.CompanyDatabase

	tx := s.db.DB.WithContext(ctx).Find(&records, "company_id = ?", companyID)
	if tx.Error != nil {
		return nil, tx.Error
	}

	switch len(records) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("get company database for %s: %w", companyID, ErrAmbiguousResult)
	}
}

func (s CompanySQL) GetDatabaseByCredential(ctx context.Context, credentialID uuid.UUID) (*model.CompanyDatabase, error) {
	var records []model.CompanyDatabase

	tx := s.db.DB.WithContext(ctx).Find(&records, "credential_id = ?", credentialID.String())
	if tx.Error != nil {
		return nil, tx.Error
	}

	switch len(records) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, fmt.Errorf("get company database by credential %s: %w", credentialID, ErrAmbiguousResult)
	}
}
