package jq

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

type JobQueue struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

func New(url string, logger *zap.Logger) (*JobQueue, error) {
	jq := &JobQueue{
		logger: logger.Named("jq"),
	}

	conn, err := nats.Connect(
		url,
		nats.ReconnectHandler(jq.reconnectHandler),
		nats.DisconnectErrHandler(jq.disconnectHandler),
	)
	if err != nil {
		return nil, err
	}

	jq.conn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		return nil, err
	}
	jq.js = js

	return jq, nil
}

func (jq *JobQueue) reconnectHandler(nc *nats.Conn) {
	jq.logger.Info("got reconnected", zap.String("url", nc.ConnectedUrl()))
}

func (jq *JobQueue) disconnectHandler(_ *nats.Conn, err error) {
	jq.logger.Error("got disconnected", zap.Error(err))
}

// Stream ensures a stream covering the given subjects exists.
func (jq *JobQueue) Stream(ctx context.Context, name, description string, subjects []string) error {
	_, err := jq.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        name,
		Description: description,
		Subjects:    subjects,
	})
	return err
}

func (jq *JobQueue) Publish(ctx context.Context, subject string, payload []byte) error {
	_, err := jq.js.Publish(ctx, subject, payload)
	return err
}

func (jq *JobQueue) Close() {
	jq.conn.Close()
}
