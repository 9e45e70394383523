package service

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/pkg/vault"
	"github.com/adboard-io/adboard-engine/services/connector/events"
	"github.com/adboard-io/adboard-engine/services/connector/ingestion"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

// historicalCursorDays bounds how far back the first backfill reaches when
// recorded on connector metadata. Deliberately distinct from
// ingestion.DefaultLookbackDays (45): the asymmetry is inherited behavior
// kept until product settles on one window.
const historicalCursorDays = 15

// EventPublisher is satisfied by events.Publisher. Event delivery is
// best-effort: a publish failure never unwinds a completed provisioning.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event events.ConnectorEvent) error
}

// Lifecycle coordinates the connector provisioning protocol: secret store,
// control-plane metadata, the company's destination database, and the
// historical-ingestion service. All I/O within one call is sequential; there
// is no mutual exclusion across calls, so callers must run
// AccountAlreadyConnected before provisioning a new account.
type Lifecycle struct {
	tracer trace.Tracer
	logger *zap.Logger

	connectors   repository.Connector
	mappings     repository.Mapping
	connMap      repository.ConnMap
	locator      tenant.Locator
	destinations tenant.Opener
	secrets      vault.SecretStore
	ingestion    ingestion.Client
	events       EventPublisher

	now func() time.Time
}

func NewLifecycle(
	connectors repository.Connector,
	mappings repository.Mapping,
	connMap repository.ConnMap,
	locator tenant.Locator,
	destinations tenant.Opener,
	secrets vault.SecretStore,
	ingestionClient ingestion.Client,
	eventPublisher EventPublisher,
	logger *zap.Logger,
) *Lifecycle {
	return &Lifecycle{
		tracer:       otel.GetTracerProvider().Tracer("connector.service.lifecycle"),
		logger:       logger.Named("service").Named("lifecycle"),
		connectors:   connectors,
		mappings:     mappings,
		connMap:      connMap,
		locator:      locator,
		destinations: destinations,
		secrets:      secrets,
		ingestion:    ingestionClient,
		events:       eventPublisher,
		now:          time.Now,
	}
}

// WithClock overrides the clock. Tests pin it to verify cursor arithmetic.
func (s *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	s.now = now
	return s
}

func secretPayload(creds provider.Credentials, now time.Time) (map[string]any, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	return map[string]any{
		"credentials": m,
		"createdAt":   now.UTC().Format(time.RFC3339),
	}, nil
}
