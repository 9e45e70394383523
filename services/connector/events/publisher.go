package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/jq"
	"github.com/adboard-io/adboard-engine/pkg/provider"
)

const (
	StreamName = "connector-events"

	SubjectConnectorCreated = "connector.created"
	SubjectConnectorDeleted = "connector.deleted"
)

type ConnectorEvent struct {
	ConnectorID  uuid.UUID     `json:"connector_id"`
	CompanyID    string        `json:"company_id"`
	ProviderType provider.Type `json:"provider_type"`
}

// Publisher emits connector lifecycle events for downstream schedulers
// (recurring sync, billing) over JetStream.
type Publisher struct {
	queue  *jq.JobQueue
	logger *zap.Logger
}

func NewPublisher(ctx context.Context, queue *jq.JobQueue, logger *zap.Logger) (*Publisher, error) {
	if err := queue.Stream(ctx, StreamName, "connector lifecycle events", []string{"connector.>"}); err != nil {
		return nil, err
	}

	return &Publisher{
		queue:  queue,
		logger: logger.Named("events"),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, event ConnectorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.queue.Publish(ctx, subject, payload); err != nil {
		p.logger.Error("failed to publish connector event",
			zap.String("subject", subject),
			zap.String("connector_id", event.ConnectorID.String()),
			zap.Error(err))
		return err
	}

	return nil
}
