package ingestion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adboard-io/adboard-engine/pkg/provider"
)

func TestTrigger(t *testing.T) {
	connectorID := uuid.New()

	var received TriggerRequest
	var authorization string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/ingestion/historical", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		authorization = r.Header.Get("Authorization")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "svc-token")
	err := client.Trigger(context.Background(), connectorID, DefaultLookbackDays, provider.GoogleAds)
	require.NoError(t, err)

	require.Equal(t, "Bearer svc-token", authorization)
	require.Equal(t, connectorID.String(), received.ConnectorID)
	require.Equal(t, 45, received.LookbackDays)
	require.Equal(t, "GoogleAds", received.ProviderType)
}

func TestTriggerNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	err := client.Trigger(context.Background(), uuid.New(), DefaultLookbackDays, provider.Shopify)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 503")
}
