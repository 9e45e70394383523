package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/pkg/vault"
	"github.com/adboard-io/adboard-engine/services/connector/events"
	"github.com/adboard-io/adboard-engine/services/connector/model"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

type harness struct {
	lifecycle *Lifecycle
	store     *fakeStore
	secrets   *failingSecretStore
	memory    *vault.InMemorySecretStore
	dest      *fakeDestination
	opener    *fakeOpener
	ingestion *fakeIngestion
	events    *fakeEvents

	companyID    string
	credentialID uuid.UUID
	now          time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	memory := vault.NewInMemorySecretStore()
	h := &harness{
		store:        newFakeStore(),
		memory:       memory,
		secrets:      &failingSecretStore{inner: memory},
		dest:         newFakeDestination(),
		ingestion:    &fakeIngestion{},
		events:       &fakeEvents{},
		companyID:    "company-1",
		credentialID: uuid.New(),
		now:          time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	h.opener = &fakeOpener{dest: h.dest}

	locator := fakeLocator{credentials: map[string]uuid.UUID{
		h.companyID: h.credentialID,
	}}

	h.lifecycle = NewLifecycle(
		h.store,
		h.store,
		h.store,
		locator,
		h.opener,
		h.secrets,
		h.ingestion,
		h.events,
		zap.NewNop(),
	).WithClock(func() time.Time { return h.now })

	return h
}

func googleAdsRequest(companyID string) ProvisionRequest {
	return ProvisionRequest{
		ConnectorID:  uuid.New(),
		CompanyID:    companyID,
		ProviderType: provider.GoogleAds,
		Credentials: provider.GoogleAdsCredentials{
			RefreshToken:    "refresh-token",
			GoogleAccountID: "1234567890",
		},
		ExtraInfo: map[string]any{"accountId": "1234567890"},
	}
}

func TestProvision(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)
	require.NoError(t, err)

	connector, meta, err := h.store.GetWithMetadata(context.Background(), req.ConnectorID)
	require.NoError(t, err)
	require.Equal(t, model.ConnectorLifecycleStateActive, connector.LifecycleState)
	require.Equal(t, model.HealthStateHealthy, connector.HealthState)
	require.Nil(t, connector.HealthReason)
	require.Equal(t, provider.GoogleAds, connector.ProviderType)
	require.Equal(t, h.credentialID.String(), connector.DestinationCredentialID)

	// Cursor arithmetic off the pinned clock.
	require.Equal(t, "ad_performance", meta.TableType)
	require.Equal(t, h.now.AddDate(0, 0, -15), meta.HistoricalCursorThreshold)

	// The secret landed under its generated id.
	payload, err := h.memory.Read(context.Background(), connector.SourceSecretID)
	require.NoError(t, err)
	creds, ok := payload["credentials"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "refresh-token", creds["refreshToken"])
	require.Equal(t, h.now.Format(time.RFC3339), payload["createdAt"])

	// Destination table named from the provider abbreviation and account.
	require.Equal(t, []string{"gads_1234567890"}, h.dest.created)

	// Historical ingestion asked for the full 45-day lookback.
	require.Len(t, h.ingestion.triggers, 1)
	require.Equal(t, req.ConnectorID, h.ingestion.triggers[0].connectorID)
	require.Equal(t, 45, h.ingestion.triggers[0].lookbackDays)
	require.Equal(t, provider.GoogleAds, h.ingestion.triggers[0].providerType)

	require.Len(t, h.events.published, 1)
	require.Equal(t, events.SubjectConnectorCreated, h.events.published[0].subject)
	require.Equal(t, h.companyID, h.events.published[0].event.CompanyID)

	mappings, err := h.store.ListByCompany(context.Background(), h.companyID)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.Equal(t, req.ConnectorID, mappings[0].ConnectorID)
}

func TestProvisionUnknownCompany(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest("company-without-database")

	err := h.lifecycle.Provision(context.Background(), req)
	require.ErrorIs(t, err, tenant.ErrCompanyNotFound)

	// Nothing committed anywhere.
	require.Empty(t, h.store.connectors)
	secretIDs, err := h.memory.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, secretIDs)
}

func TestProvisionInvalidCredentials(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)
	req.Credentials = provider.GoogleAdsCredentials{GoogleAccountID: "1234567890"}

	err := h.lifecycle.Provision(context.Background(), req)
	require.Error(t, err)
	require.Empty(t, h.store.connectors)
}

func TestProvisionSecretStoreDown(t *testing.T) {
	h := newHarness(t)
	h.secrets.createErr = errors.New("vault sealed")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	require.Equal(t, "secret store", upstreamErr.System)
	require.Empty(t, h.store.connectors)
}

func TestProvisionTransactionRollbackDeletesSecret(t *testing.T) {
	h := newHarness(t)
	h.store.failCreate = errors.New("deadlock detected")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)
	require.Error(t, err)
	var compErr *CompensationError
	require.False(t, errors.As(err, &compErr))

	// The compensating delete removed the secret written before the
	// transaction.
	secretIDs, lerr := h.memory.List(context.Background())
	require.NoError(t, lerr)
	require.Empty(t, secretIDs)

	require.Empty(t, h.store.connectors)
	require.Empty(t, h.ingestion.triggers)
}

func TestProvisionCompensationFailureEscalates(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("deadlock detected")
	compFailure := errors.New("vault unreachable")
	h.store.failCreate = cause
	h.secrets.deleteErr = compFailure

	err := h.lifecycle.Provision(context.Background(), googleAdsRequest(h.companyID))

	var compErr *CompensationError
	require.ErrorAs(t, err, &compErr)
	require.ErrorIs(t, compErr.Cause, cause)
	require.ErrorIs(t, compErr.CompensationErr, compFailure)
	require.NotEmpty(t, compErr.SecretID)

	// The orphan is still in the store, for the reconciler to collect.
	secretIDs, lerr := h.memory.List(context.Background())
	require.NoError(t, lerr)
	require.Equal(t, []string{compErr.SecretID}, secretIDs)
}

func TestProvisionTableCreationFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.dest.failCreate = errors.New("permission denied")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)

	var partialErr *PartialProvisioningError
	require.ErrorAs(t, err, &partialErr)
	require.Equal(t, req.ConnectorID, partialErr.ConnectorID)

	// Metadata committed: the connector exists, degraded, still provisioning.
	connector, err := h.store.Get(context.Background(), req.ConnectorID)
	require.NoError(t, err)
	require.Equal(t, model.ConnectorLifecycleStateProvisioning, connector.LifecycleState)
	require.Equal(t, model.HealthStateDegraded, connector.HealthState)
	require.NotNil(t, connector.HealthReason)
	require.Contains(t, *connector.HealthReason, "permission denied")

	require.Empty(t, h.ingestion.triggers)
	require.Empty(t, h.events.published)
}

func TestProvisionIngestionFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.ingestion.err = errors.New("ingestion service unavailable")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)

	var partialErr *PartialProvisioningError
	require.ErrorAs(t, err, &partialErr)
	require.Equal(t, "historical ingestion trigger", partialErr.Step)

	// The table was created before the trigger failed and is kept.
	require.Equal(t, []string{"gads_1234567890"}, h.dest.created)

	connector, err := h.store.Get(context.Background(), req.ConnectorID)
	require.NoError(t, err)
	require.Equal(t, model.HealthStateDegraded, connector.HealthState)
}

func TestProvisionResumeDegradedConnector(t *testing.T) {
	h := newHarness(t)
	h.ingestion.err = errors.New("ingestion service unavailable")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)
	require.Error(t, err)

	// Retry with the same connector id after the ingestion service
	// recovers: no new secret, no new records, the existing table is fine.
	h.ingestion.err = nil
	err = h.lifecycle.Provision(context.Background(), req)
	require.NoError(t, err)

	secretIDs, err := h.memory.List(context.Background())
	require.NoError(t, err)
	require.Len(t, secretIDs, 1)

	require.Len(t, h.store.connectors, 1)
	require.Len(t, h.store.mappings, 1)
	require.Len(t, h.dest.created, 1)
	require.Len(t, h.ingestion.triggers, 1)

	connector, err := h.store.Get(context.Background(), req.ConnectorID)
	require.NoError(t, err)
	require.Equal(t, model.ConnectorLifecycleStateActive, connector.LifecycleState)
	require.Equal(t, model.HealthStateHealthy, connector.HealthState)
}

func TestProvisionResumeActiveIsNoOp(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)

	require.NoError(t, h.lifecycle.Provision(context.Background(), req))
	require.NoError(t, h.lifecycle.Provision(context.Background(), req))

	require.Len(t, h.dest.created, 1)
	require.Len(t, h.ingestion.triggers, 1)
	require.Len(t, h.events.published, 1)
}

func TestProvisionResumeRejectsProviderSwitch(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)
	require.NoError(t, h.lifecycle.Provision(context.Background(), req))

	// A retry under the same connector id must carry the provider the
	// connector was created for.
	retry := req
	retry.ProviderType = provider.Shopify
	retry.Credentials = provider.ShopifyCredentials{
		RefreshToken: "refresh-token",
		StoreID:      "1234567890",
	}

	err := h.lifecycle.Provision(context.Background(), retry)
	require.ErrorIs(t, err, ErrConnectorMismatch)

	require.Len(t, h.dest.created, 1)
	require.Len(t, h.ingestion.triggers, 1)
}

func TestProvisionResumeRejectsAccountSwitch(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)
	require.NoError(t, h.lifecycle.Provision(context.Background(), req))

	retry := req
	retry.Credentials = provider.GoogleAdsCredentials{
		RefreshToken:    "refresh-token",
		GoogleAccountID: "9999999999",
	}

	err := h.lifecycle.Provision(context.Background(), retry)
	require.ErrorIs(t, err, ErrConnectorMismatch)
	require.Len(t, h.dest.created, 1)
}

func TestProvisionResumeArchivedRefused(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)
	require.NoError(t, h.lifecycle.Provision(context.Background(), req))

	require.NoError(t, h.store.UpdateState(context.Background(), req.ConnectorID,
		model.ConnectorLifecycleStateArchived, model.HealthStateHealthy, nil))

	err := h.lifecycle.Provision(context.Background(), req)
	require.ErrorIs(t, err, ErrConnectorArchived)
}

func TestProvisionEventFailureDoesNotUnwind(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("stream not available")
	req := googleAdsRequest(h.companyID)

	err := h.lifecycle.Provision(context.Background(), req)
	require.NoError(t, err)

	connector, err := h.store.Get(context.Background(), req.ConnectorID)
	require.NoError(t, err)
	require.Equal(t, model.ConnectorLifecycleStateActive, connector.LifecycleState)
}

func TestUpdateCredentials(t *testing.T) {
	h := newHarness(t)
	req := googleAdsRequest(h.companyID)
	require.NoError(t, h.lifecycle.Provision(context.Background(), req))

	connector, err := h.store.Get(context.Background(), req.ConnectorID)
	require.NoError(t, err)

	h.now = h.now.Add(48 * time.Hour)
	err = h.lifecycle.UpdateCredentials(context.Background(), req.ConnectorID, provider.GoogleAdsCredentials{
		RefreshToken:    "rotated-token",
		GoogleAccountID: "1234567890",
	})
	require.NoError(t, err)

	payload, err := h.memory.Read(context.Background(), connector.SourceSecretID)
	require.NoError(t, err)
	creds := payload["credentials"].(map[string]any)
	require.Equal(t, "rotated-token", creds["refreshToken"])
	require.Equal(t, h.now.Format(time.RFC3339), payload["createdAt"])
}

func TestUpdateCredentialsUnknownConnector(t *testing.T) {
	h := newHarness(t)

	err := h.lifecycle.UpdateCredentials(context.Background(), uuid.New(), provider.GoogleAdsCredentials{
		RefreshToken:    "token",
		GoogleAccountID: "1234567890",
	})
	require.ErrorIs(t, err, ErrConnectorNotFound)
}
