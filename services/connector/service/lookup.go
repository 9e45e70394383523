package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/services/connector/model"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
)

// ResolveConnectorID looks up the connector serving (company, provider).
// Zero and multiple matches are both errors: a duplicate mapping is a
// data-integrity fault to surface, not to resolve silently.
func (s *Lifecycle) ResolveConnectorID(ctx context.Context, companyID string, providerType provider.Type) (uuid.UUID, error) {
	ctx, span := s.tracer.Start(ctx, "resolve-connector-id")
	defer span.End()

	id, err := s.mappings.ResolveConnectorID(ctx, companyID, providerType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrRecordNotFound) {
			return uuid.Nil, ErrConnectorNotFound
		}
		return uuid.Nil, err
	}

	return id, nil
}

// ResolveSourceAndDestination returns the secret and destination credential
// ids for a connector, under the same singleton contract.
func (s *Lifecycle) ResolveSourceAndDestination(ctx context.Context, connectorID uuid.UUID) (string, string, error) {
	ctx, span := s.tracer.Start(ctx, "resolve-source-and-destination")
	defer span.End()

	sourceSecretID, destinationCredentialID, err := s.connectors.ResolveSourceAndDestination(ctx, connectorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrRecordNotFound) {
			return "", "", ErrConnectorNotFound
		}
		return "", "", err
	}

	return sourceSecretID, destinationCredentialID, nil
}

// AccountAlreadyConnected reports whether any mapping for (company, provider)
// references the given external account id. Unlike the resolve lookups it is
// tolerant of multiples: duplicate prevention is the caller's job before
// provisioning, this predicate only answers existence.
func (s *Lifecycle) AccountAlreadyConnected(ctx context.Context, companyID string, providerType provider.Type, externalAccountID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "account-already-connected")
	defer span.End()

	mappings, err := s.mappings.ListByCompanyAndType(ctx, companyID, providerType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	for _, m := range mappings {
		var extraInfo map[string]any
		if err := json.Unmarshal(m.ExtraInfo, &extraInfo); err != nil {
			continue
		}
		if accountID, ok := extraInfo["accountId"].(string); ok && accountID == externalAccountID {
			return true, nil
		}
	}

	return false, nil
}

// Get returns one connector with its metadata companion.
func (s *Lifecycle) Get(ctx context.Context, connectorID uuid.UUID) (*model.Connector, *model.ConnectorMetadata, error) {
	ctx, span := s.tracer.Start(ctx, "get")
	defer span.End()

	connector, meta, err := s.connectors.GetWithMetadata(ctx, connectorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, nil, ErrConnectorNotFound
		}
		return nil, nil, err
	}

	return connector, meta, nil
}

type ConnectorListing struct {
	Mapping   model.CompanyConnectorMapping
	Connector model.Connector
}

// ListByCompany returns the company's connectors with their health state for
// the dashboard's integrations page.
func (s *Lifecycle) ListByCompany(ctx context.Context, companyID string) ([]ConnectorListing, error) {
	ctx, span := s.tracer.Start(ctx, "list-by-company")
	defer span.End()

	mappings, err := s.mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	listings := make([]ConnectorListing, 0, len(mappings))
	for _, m := range mappings {
		connector, err := s.connectors.Get(ctx, m.ConnectorID)
		if err != nil {
			if errors.Is(err, repository.ErrRecordNotFound) {
				// Mapping without a connector: integrity fault, skip but log.
				s.logger.Warn("mapping references missing connector",
					zap.String("connector_id", m.ConnectorID.String()))
				continue
			}
			return nil, err
		}
		listings = append(listings, ConnectorListing{Mapping: m, Connector: *connector})
	}

	return listings, nil
}
