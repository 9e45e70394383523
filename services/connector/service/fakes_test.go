package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/pkg/provider"
	"github.com/adboard-io/adboard-engine/services/connector/events"
	"github.com/adboard-io/adboard-engine/services/connector/model"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
	"github.com/adboard-io/adboard-engine/services/connector/tenant"
)

// fakeStore is an in-memory stand-in for the whole metadata store. The three
// repository interfaces and the transactional ConnMap all share it, matching
// the consistency the SQL implementations get from one database.
type fakeStore struct {
	mu sync.Mutex

	connectors map[uuid.UUID]model.Connector
	metadata   map[uuid.UUID]model.ConnectorMetadata
	mappings   []model.CompanyConnectorMapping

	failCreate error
	failDelete error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		connectors: make(map[uuid.UUID]model.Connector),
		metadata:   make(map[uuid.UUID]model.ConnectorMetadata),
	}
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (*model.Connector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.connectors[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeStore) GetWithMetadata(ctx context.Context, id uuid.UUID) (*model.Connector, *model.ConnectorMetadata, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.metadata[id]
	if !ok {
		return nil, nil, repository.ErrRecordNotFound
	}
	return c, &m, nil
}

func (f *fakeStore) ResolveSourceAndDestination(ctx context.Context, id uuid.UUID) (string, string, error) {
	c, err := f.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return c.SourceSecretID, c.DestinationCredentialID, nil
}

func (f *fakeStore) UpdateState(_ context.Context, id uuid.UUID, lifecycle model.ConnectorLifecycleState, health model.HealthState, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.connectors[id]
	if !ok {
		return repository.ErrRecordNotFound
	}
	c.LifecycleState = lifecycle
	c.HealthState = health
	c.HealthReason = reason
	f.connectors[id] = c
	return nil
}

func (f *fakeStore) ListSecretIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.connectors))
	for _, c := range f.connectors {
		ids = append(ids, c.SourceSecretID)
	}
	return ids, nil
}

func (f *fakeStore) ResolveConnectorID(ctx context.Context, companyID string, providerType provider.Type) (uuid.UUID, error) {
	matches, err := f.ListByCompanyAndType(ctx, companyID, providerType)
	if err != nil {
		return uuid.Nil, err
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, repository.ErrRecordNotFound
	case 1:
		return matches[0].ConnectorID, nil
	default:
		return uuid.Nil, repository.ErrAmbiguousResult
	}
}

func (f *fakeStore) ListByCompanyAndType(_ context.Context, companyID string, providerType provider.Type) ([]model.CompanyConnectorMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []model.CompanyConnectorMapping
	for _, m := range f.mappings {
		if m.CompanyID == companyID && m.ProviderType == providerType {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (f *fakeStore) ListByCompany(_ context.Context, companyID string) ([]model.CompanyConnectorMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []model.CompanyConnectorMapping
	for _, m := range f.mappings {
		if m.CompanyID == companyID {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (f *fakeStore) ListByConnectorID(_ context.Context, connectorID uuid.UUID) ([]model.CompanyConnectorMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matches []model.CompanyConnectorMapping
	for _, m := range f.mappings {
		if m.ConnectorID == connectorID {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (f *fakeStore) CreateConnector(_ context.Context, connector *model.Connector, meta *model.ConnectorMetadata, mapping *model.CompanyConnectorMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate != nil {
		return f.failCreate
	}
	if _, exists := f.connectors[connector.ID]; exists {
		return fmt.Errorf("duplicate connector %s", connector.ID)
	}

	f.connectors[connector.ID] = *connector
	f.metadata[meta.ConnectorID] = *meta
	f.mappings = append(f.mappings, *mapping)
	return nil
}

func (f *fakeStore) DeleteConnector(_ context.Context, connectorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDelete != nil {
		return f.failDelete
	}

	delete(f.connectors, connectorID)
	delete(f.metadata, connectorID)

	kept := f.mappings[:0]
	for _, m := range f.mappings {
		if m.ConnectorID != connectorID {
			kept = append(kept, m)
		}
	}
	f.mappings = kept
	return nil
}

func (f *fakeStore) seedMapping(companyID string, connectorID uuid.UUID, providerType provider.Type, accountID string) {
	extraInfo, _ := json.Marshal(map[string]any{"accountId": accountID})
	f.mappings = append(f.mappings, model.CompanyConnectorMapping{
		CompanyID:    companyID,
		ConnectorID:  connectorID,
		ProviderType: providerType,
		ExtraInfo:    extraInfo,
	})
}

type fakeLocator struct {
	credentials map[string]uuid.UUID
}

func (f fakeLocator) ResolveDestinationCredential(_ context.Context, companyID string) (uuid.UUID, error) {
	id, ok := f.credentials[companyID]
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", tenant.ErrCompanyNotFound, companyID)
	}
	return id, nil
}

// fakeDestination records table operations keyed by the rendered table name.
type fakeDestination struct {
	mu      sync.Mutex
	tables  map[string]bool
	created []string
	dropped []string

	failCreate error
	failDrop   error
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{tables: make(map[string]bool)}
}

func (f *fakeDestination) CreateRawTable(_ context.Context, prefix, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreate != nil {
		return f.failCreate
	}

	name := tenant.TableName(prefix, accountID)
	if f.tables[name] {
		return fmt.Errorf("create table %s: %w", name, tenant.ErrTableExists)
	}
	f.tables[name] = true
	f.created = append(f.created, name)
	return nil
}

func (f *fakeDestination) DropRawTable(_ context.Context, prefix, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDrop != nil {
		return f.failDrop
	}

	name := tenant.TableName(prefix, accountID)
	delete(f.tables, name)
	f.dropped = append(f.dropped, name)
	return nil
}

type fakeOpener struct {
	dest    *fakeDestination
	openErr error
}

func (f fakeOpener) Open(context.Context, uuid.UUID) (tenant.Destination, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.dest, nil
}

// fakeIngestion records every trigger it receives.
type fakeIngestion struct {
	mu       sync.Mutex
	triggers []ingestionTrigger
	err      error
}

type ingestionTrigger struct {
	connectorID  uuid.UUID
	lookbackDays int
	providerType provider.Type
}

func (f *fakeIngestion) Trigger(_ context.Context, connectorID uuid.UUID, lookbackDays int, providerType provider.Type) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.triggers = append(f.triggers, ingestionTrigger{
		connectorID:  connectorID,
		lookbackDays: lookbackDays,
		providerType: providerType,
	})
	return nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

type publishedEvent struct {
	subject string
	event   events.ConnectorEvent
}

func (f *fakeEvents) Publish(_ context.Context, subject string, event events.ConnectorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedEvent{subject: subject, event: event})
	return nil
}

// failingSecretStore wraps another store and fails selected operations.
type failingSecretStore struct {
	inner     secretStore
	createErr error
	deleteErr error
	updateErr error
}

type secretStore interface {
	Create(ctx context.Context, secretID string, payload map[string]any) error
	Read(ctx context.Context, secretID string) (map[string]any, error)
	Update(ctx context.Context, secretID string, payload map[string]any) error
	Delete(ctx context.Context, secretID string) error
	List(ctx context.Context) ([]string, error)
}

func (f *failingSecretStore) Create(ctx context.Context, secretID string, payload map[string]any) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.inner.Create(ctx, secretID, payload)
}

func (f *failingSecretStore) Read(ctx context.Context, secretID string) (map[string]any, error) {
	return f.inner.Read(ctx, secretID)
}

func (f *failingSecretStore) Update(ctx context.Context, secretID string, payload map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.inner.Update(ctx, secretID, payload)
}

func (f *failingSecretStore) Delete(ctx context.Context, secretID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.inner.Delete(ctx, secretID)
}

func (f *failingSecretStore) List(ctx context.Context) ([]string, error) {
	return f.inner.List(ctx)
}
