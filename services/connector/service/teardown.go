package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/services/connector/events"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
)

// Teardown is the inverse protocol: secret, metadata records, destination
// table, in that order. It is deliberately not transactional: each step is
// attempted regardless of earlier failures so a partial teardown removes as
// much as it can, and every failure is collected and returned instead of
// swallowed. Re-running teardown on the residue is safe.
func (s *Lifecycle) Teardown(ctx context.Context, connectorID uuid.UUID, externalAccountID, tablePrefix string) error {
	ctx, span := s.tracer.Start(ctx, "teardown")
	defer span.End()

	logCtx := s.logger.With(zap.String("connector_id", connectorID.String()))

	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrConnectorNotFound
		}
		return err
	}

	if tablePrefix == "" {
		desc, err := provider.GetDescriptor(connector.ProviderType)
		if err != nil {
			return err
		}
		tablePrefix = desc.Abbreviation
	}

	// Mappings are read before they are deleted: they carry the external
	// account id and the owning company.
	mappings, err := s.mappings.ListByConnectorID(ctx, connectorID)
	if err != nil {
		return err
	}
	companyID := ""
	for _, m := range mappings {
		companyID = m.CompanyID
		if externalAccountID == "" {
			var extraInfo map[string]any
			if jerr := json.Unmarshal(m.ExtraInfo, &extraInfo); jerr == nil {
				if accountID, ok := extraInfo["accountId"].(string); ok {
					externalAccountID = accountID
				}
			}
		}
	}

	var errs []error

	if err := s.secrets.Delete(ctx, connector.SourceSecretID); err != nil {
		logCtx.Error("teardown: failed to delete secret",
			zap.String("secret_id", connector.SourceSecretID), zap.Error(err))
		errs = append(errs, fmt.Errorf("delete secret: %w", err))
	}

	if err := s.connMap.DeleteConnector(ctx, connectorID); err != nil {
		logCtx.Error("teardown: failed to delete metadata records", zap.Error(err))
		errs = append(errs, fmt.Errorf("delete metadata records: %w", err))
	}

	if externalAccountID == "" {
		errs = append(errs, errors.New("external account id unknown, destination table not dropped"))
	} else if !provider.ValidAccountID(externalAccountID) {
		errs = append(errs, fmt.Errorf("external account id %q is not a valid table identifier, destination table not dropped", externalAccountID))
	} else if credentialID, perr := uuid.Parse(connector.DestinationCredentialID); perr != nil {
		errs = append(errs, fmt.Errorf("malformed destination credential id: %w", perr))
	} else if dest, oerr := s.destinations.Open(ctx, credentialID); oerr != nil {
		logCtx.Error("teardown: failed to open destination database", zap.Error(oerr))
		errs = append(errs, fmt.Errorf("open destination database: %w", oerr))
	} else if derr := dest.DropRawTable(ctx, tablePrefix, externalAccountID); derr != nil {
		logCtx.Error("teardown: failed to drop destination table", zap.Error(derr))
		errs = append(errs, fmt.Errorf("drop destination table: %w", derr))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, events.SubjectConnectorDeleted, events.ConnectorEvent{
			ConnectorID:  connectorID,
			CompanyID:    companyID,
			ProviderType: connector.ProviderType,
		}); err != nil {
			logCtx.Warn("connector deleted but event publish failed", zap.Error(err))
		}
	}

	logCtx.Info("connector torn down")
	return nil
}
