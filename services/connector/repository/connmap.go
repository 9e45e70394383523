package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adboard-io/adboard-engine/services/connector/db"
	"github.com/adboard-io/adboard-engine/services/connector/model"
)

// ConnMap is the transactional repository covering the record families that
// must live and die together: the connector, its metadata companion, and the
// company mapping. All three land in one transaction so a partial failure
// rolls back every row.
type ConnMap interface {
	CreateConnector(ctx context.Context, connector *model.Connector, meta *model.ConnectorMetadata, mapping *model.CompanyConnectorMapping) error
	DeleteConnector(ctx context.Context, connectorID uuid.UUID) error
}

type ConnMapSQL struct {
	db db.Database
}

func NewConnMapSQL(db db.Database) ConnMap {
	return ConnMapSQL{db: db}
}

func (c ConnMapSQL) CreateConnector(ctx context.Context, connector *model.Connector, meta *model.ConnectorMetadata, mapping *model.CompanyConnectorMapping) error {
	return c.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(connector).Error; err != nil {
			return err
		}

		if err := tx.Create(meta).Error; err != nil {
			return err
		}

		if err := tx.Create(mapping).Error; err != nil {
			return err
		}

		return nil
	})
}

func (c ConnMapSQL) DeleteConnector(ctx context.Context, connectorID uuid.UUID) error {
	return c.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("connector_id = ?", connectorID.String()).
			Delete(new(model.CompanyConnectorMapping)).Error; err != nil {
			return err
		}

		if err := tx.
			Where("connector_id = ?", connectorID.String()).
			Delete(new(model.ConnectorMetadata)).Error; err != nil {
			return err
		}

		if err := tx.
			Where("id = ?", connectorID.String()).
			Delete(new(model.Connector)).Error; err != nil {
			return err
		}

		return nil
	})
}
