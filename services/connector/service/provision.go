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
	"github.com/adboard-io/adboard-engine/services/connector/ingestion"
	"github.com/adboard-io/adboard-engine/services/connector/model"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

type ProvisionRequest struct {
	// ConnectorID is pre-generated by the caller so retries after a partial
	// failure are keyed on it and resume instead of duplicating.
	ConnectorID  uuid.UUID
	CompanyID    string
	ProviderType provider.Type
	Credentials  provider.Credentials

	// ExtraInfo is stashed verbatim on the mapping record; the
	// already-connected check matches on its accountId field.
	ExtraInfo map[string]any
	Comment   string
}

// Provision runs the credential-provisioning protocol: secret, metadata
// records, destination table, historical ingestion. The secret write commits
// before and independently of the metadata transaction; if the transaction
// fails the secret is deleted as a compensating action, and a failure of
// that compensation is escalated as CompensationError. Steps after the
// metadata commit leave a live-but-degraded connector on failure.
func (s *Lifecycle) Provision(ctx context.Context, req ProvisionRequest) error {
	ctx, span := s.tracer.Start(ctx, "provision")
	defer span.End()

	logCtx := s.logger.With(
		zap.String("connector_id", req.ConnectorID.String()),
		zap.String("company_id", req.CompanyID),
		zap.String("provider_type", req.ProviderType.String()),
	)

	desc, err := provider.GetDescriptor(req.ProviderType)
	if err != nil {
		return err
	}
	if err := req.Credentials.Validate(); err != nil {
		return err
	}

	existing, err := s.connectors.Get(ctx, req.ConnectorID)
	if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if existing != nil {
		return s.resume(ctx, existing, desc, req, logCtx)
	}

	credentialID, err := s.locator.ResolveDestinationCredential(ctx, req.CompanyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	dest, err := s.destinations.Open(ctx, credentialID)
	if err != nil {
		return &UpstreamError{System: "destination database", Err: err}
	}

	secretID := uuid.New()
	payload, err := secretPayload(req.Credentials, s.now())
	if err != nil {
		return err
	}
	if err := s.secrets.Create(ctx, secretID.String(), payload); err != nil {
		return &UpstreamError{System: "secret store", Err: err}
	}

	now := s.now()
	connector := &model.Connector{
		ID:                      req.ConnectorID,
		ProviderType:            req.ProviderType,
		SourceSecretID:          secretID.String(),
		DestinationCredentialID: credentialID.String(),
		Comment:                 req.Comment,
		LifecycleState:          model.ConnectorLifecycleStateProvisioning,
		HealthState:             model.HealthStateHealthy,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	meta := &model.ConnectorMetadata{
		ConnectorID:               req.ConnectorID,
		TableType:                 desc.TableType,
		HistoricalCursorThreshold: now.AddDate(0, 0, -historicalCursorDays),
		Comment:                   req.Comment,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	extraInfo, err := json.Marshal(req.ExtraInfo)
	if err != nil {
		return err
	}
	mapping := &model.CompanyConnectorMapping{
		CompanyID:    req.CompanyID,
		ConnectorID:  req.ConnectorID,
		ProviderType: req.ProviderType,
		Comment:      req.Comment,
		ExtraInfo:    extraInfo,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.connMap.CreateConnector(ctx, connector, meta, mapping); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		// The secret must not outlive the rolled-back records.
		if derr := s.secrets.Delete(ctx, secretID.String()); derr != nil {
			logCtx.Error("failed to clean up secret after rollback",
				zap.String("secret_id", secretID.String()),
				zap.Error(derr))
			return &CompensationError{
				SecretID:        secretID.String(),
				Cause:           err,
				CompensationErr: derr,
			}
		}
		return fmt.Errorf("create connector records: %w", err)
	}

	return s.completeProvisioning(ctx, connector, desc, req, dest, false, logCtx)
}

// resume finishes a previous provisioning attempt for the same connector id
// instead of duplicating secrets and records. Active connectors are a no-op.
func (s *Lifecycle) resume(ctx context.Context, existing *model.Connector, desc provider.Descriptor, req ProvisionRequest, logCtx *zap.Logger) error {
	if existing.ProviderType != req.ProviderType {
		return fmt.Errorf("%w: connector %s is %s, request says %s",
			ErrConnectorMismatch, existing.ID, existing.ProviderType, req.ProviderType)
	}
	if accountID, err := s.storedAccountID(ctx, existing.ID); err == nil &&
		accountID != "" && accountID != req.Credentials.AccountID() {
		return fmt.Errorf("%w: connector %s belongs to a different account",
			ErrConnectorMismatch, existing.ID)
	}

	switch existing.LifecycleState {
	case model.ConnectorLifecycleStateActive:
		return nil
	case model.ConnectorLifecycleStateArchived:
		return ErrConnectorArchived
	}

	logCtx.Info("resuming provisioning of existing connector",
		zap.String("lifecycle_state", string(existing.LifecycleState)))

	credentialID, err := uuid.Parse(existing.DestinationCredentialID)
	if err != nil {
		return fmt.Errorf("connector %s carries malformed destination credential id: %w", existing.ID, err)
	}

	dest, err := s.destinations.Open(ctx, credentialID)
	if err != nil {
		return &UpstreamError{System: "destination database", Err: err}
	}

	return s.completeProvisioning(ctx, existing, desc, req, dest, true, logCtx)
}

// storedAccountID recovers the external account id a connector was
// provisioned for from its mapping's extra info.
func (s *Lifecycle) storedAccountID(ctx context.Context, connectorID uuid.UUID) (string, error) {
	mappings, err := s.mappings.ListByConnectorID(ctx, connectorID)
	if err != nil {
		return "", err
	}
	for _, m := range mappings {
		var extraInfo map[string]any
		if jerr := json.Unmarshal(m.ExtraInfo, &extraInfo); jerr != nil {
			continue
		}
		if accountID, ok := extraInfo["accountId"].(string); ok {
			return accountID, nil
		}
	}
	return "", nil
}

// completeProvisioning runs the steps outside transactional protection:
// destination table, ingestion trigger, activation. Failures here mark the
// connector degraded rather than rolling anything back.
func (s *Lifecycle) completeProvisioning(
	ctx context.Context,
	connector *model.Connector,
	desc provider.Descriptor,
	req ProvisionRequest,
	dest tenant.Destination,
	tolerateExistingTable bool,
	logCtx *zap.Logger,
) error {
	accountID := req.Credentials.AccountID()

	if err := dest.CreateRawTable(ctx, desc.Abbreviation, accountID); err != nil {
		if !tolerateExistingTable || !errors.Is(err, tenant.ErrTableExists) {
			s.markDegraded(ctx, connector.ID, "create destination table: "+err.Error(), logCtx)
			return &PartialProvisioningError{
				ConnectorID: connector.ID,
				Step:        "destination table creation",
				Err:         err,
			}
		}
	}

	if err := s.ingestion.Trigger(ctx, connector.ID, ingestion.DefaultLookbackDays, desc.Type); err != nil {
		s.markDegraded(ctx, connector.ID, "trigger historical ingestion: "+err.Error(), logCtx)
		return &PartialProvisioningError{
			ConnectorID: connector.ID,
			Step:        "historical ingestion trigger",
			Err:         err,
		}
	}

	if err := s.connectors.UpdateState(ctx, connector.ID,
		model.ConnectorLifecycleStateActive, model.HealthStateHealthy, nil); err != nil {
		return err
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, events.SubjectConnectorCreated, events.ConnectorEvent{
			ConnectorID:  connector.ID,
			CompanyID:    req.CompanyID,
			ProviderType: connector.ProviderType,
		}); err != nil {
			logCtx.Warn("connector created but event publish failed", zap.Error(err))
		}
	}

	logCtx.Info("connector provisioned")
	return nil
}

func (s *Lifecycle) markDegraded(ctx context.Context, id uuid.UUID, reason string, logCtx *zap.Logger) {
	if err := s.connectors.UpdateState(ctx, id,
		model.ConnectorLifecycleStateProvisioning, model.HealthStateDegraded, &reason); err != nil {
		logCtx.Error("failed to mark connector degraded", zap.Error(err))
	}
}

// UpdateCredentials rewrites the secret for an existing connector after a
// re-authorization, keeping the same secret id.
func (s *Lifecycle) UpdateCredentials(ctx context.Context, connectorID uuid.UUID, creds provider.Credentials) error {
	ctx, span := s.tracer.Start(ctx, "update-credentials")
	defer span.End()

	if err := creds.Validate(); err != nil {
		return err
	}

	connector, err := s.connectors.Get(ctx, connectorID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrConnectorNotFound
		}
		return err
	}

	payload, err := secretPayload(creds, s.now())
	if err != nil {
		return err
	}

	if err := s.secrets.Update(ctx, connector.SourceSecretID, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &UpstreamError{System: "secret store", Err: err}
	}

	return nil
}
