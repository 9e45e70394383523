package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adboard-io/adboard-engine/pkg/provider"
)

// DefaultLookbackDays is the window handed to the first historical backfill
// of a freshly provisioned connector.
const DefaultLookbackDays = 45

// Client schedules backfill of historical records for a connector. The call
// returns once the job is scheduled, not once backfill completes; retrying a
// trigger is idempotent on the ingestion side.
type Client interface {
	Trigger(ctx context.Context, connectorID uuid.UUID, lookbackDays int, providerType provider.Type) error
}

type TriggerRequest struct {
	ConnectorID  string `json:"connector_id"`
	LookbackDays int    `json:"lookback_days"`
	ProviderType string `json:"provider_type"`
}

type HTTPClient struct {
	BaseURL string
	Token   string
}

func NewHTTPClient(baseURL, token string) Client {
	return &HTTPClient{BaseURL: baseURL, Token: token}
}

func (c *HTTPClient) Trigger(ctx context.Context, connectorID uuid.UUID, lookbackDays int, providerType provider.Type) error {
	url := c.BaseURL + "/api/v1/ingestion/historical"

	payload, err := json.Marshal(TriggerRequest{
		ConnectorID:  connectorID.String(),
		LookbackDays: lookbackDays,
		ProviderType: providerType.String(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	client := http.Client{
		Timeout: 5 * time.Second,
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("trigger historical ingestion: status %d: %s", res.StatusCode, string(body))
	}

	return nil
}
