package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/services/connector/db"
	"github.com/adboard-io/adboard-engine/services/connector/model"
)

type Connector interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Connector, error)
	GetWithMetadata(ctx context.Context, id uuid.UUID) (*model.Connector, *model.ConnectorMetadata, error)
	ResolveSourceAndDestination(ctx context.Context, id uuid.UUID) (sourceSecretID string, destinationCredentialID string, err error)
	UpdateState(ctx context.Context, id uuid.UUID, lifecycle model.ConnectorLifecycleState, health model.HealthState, reason *string) error
	ListSecretIDs(ctx context.Context) ([]string, error)
}

type ConnectorSQL struct {
	db db.Database
}

func NewConnectorSQL(db db.Database) Connector {
	return ConnectorSQL{db: db}
}

func (s ConnectorSQL) Get(ctx context.Context, id uuid.UUID) (*model.Connector, error) {
	var connectors []model.Connector

	tx := s.db.DB.WithContext(ctx).Find(&connectors, "id = ?", id.String())
	if tx.Error != nil {
		return nil, tx.Error
	}

	switch len(connectors) {
	case 0:
		return nil, ErrRecordNotFound
	case 1:
		return &connectors[0], nil
	default:
		return nil, fmt.Errorf("get connector %s: %w", id, ErrAmbiguousResult)
	}
}

func (s ConnectorSQL) GetWithMetadata(ctx context.Context, id uuid.UUID) (*model.Connector, *model.ConnectorMetadata, error) {
	connector, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var metas []model.ConnectorMetadata
	tx := s.db.DB.WithContext(ctx).Find(&metas, "connector_id = ?", id.String())
	if tx.Error != nil {
		return nil, nil, tx.Error
	}

	switch len(metas) {
	case 0:
		return nil, nil, fmt.Errorf("metadata for connector %s: %w", id, ErrRecordNotFound)
	case 1:
		return connector, &metas[0], nil
	default:
		return nil, nil, fmt.Errorf("metadata for connector %s: %w", id, ErrAmbiguousResult)
	}
}

// ResolveSourceAndDestination is a singleton-lookup assertion: zero or more
// than one matching row is an error, never a silent first-match.
func (s ConnectorSQL) ResolveSourceAndDestination(ctx context.Context, id uuid.UUID) (string, string, error) {
	connector, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}

	return connector.SourceSecretID, connector.DestinationCredentialID, nil
}

func (s ConnectorSQL) UpdateState(ctx context.Context, id uuid.UUID, lifecycle model.ConnectorLifecycleState, health model.HealthState, reason *string) error {
	tx := s.db.DB.WithContext(ctx).
		Model(&model.Connector{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"lifecycle_state": lifecycle,
			"health_state":    health,
			"health_reason":   reason,
		})

	if tx.Error != nil {
		return tx.Error
	} else if tx.RowsAffected != 1 {
		return ErrRecordNotFound
	}

	return nil
}

// ListSecretIDs returns the secret ids referenced by any connector. Used by
// the orphaned-secret reconciliation sweep.
func (s ConnectorSQL) ListSecretIDs(ctx context.Context) ([]string, error) {
	var ids []string

	tx := s.db.DB.WithContext(ctx).
		Model(&model.Connector{}).
		Pluck("source_secret_id", &ids)
	if tx.Error != nil {
		return nil, tx.Error
	}

	return ids, nil
}
