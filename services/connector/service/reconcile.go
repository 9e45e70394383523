package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adboard-io/adboard-engine/pkg/vault"
	"github.com/adboard-io/adboard-engine/services/connector/repository"
)

// DefaultOrphanAge is how old an unreferenced secret must be before the
// sweep collects it, leaving room for provisioning calls still in flight.
const DefaultOrphanAge = 24 * time.Hour

// Reconciler garbage-collects orphaned secrets: blobs in the secret store
// that no connector references, left behind when a rollback's compensating
// delete failed.
type Reconciler struct {
	connectors repository.Connector
	secrets    vault.SecretStore
	logger     *zap.Logger

	orphanAge time.Duration
	now       func() time.Time
}

func NewReconciler(connectors repository.Connector, secrets vault.SecretStore, orphanAge time.Duration, logger *zap.Logger) *Reconciler {
	if orphanAge <= 0 {
		orphanAge = DefaultOrphanAge
	}
	return &Reconciler{
		connectors: connectors,
		secrets:    secrets,
		logger:     logger.Named("service").Named("reconciler"),
		orphanAge:  orphanAge,
		now:        time.Now,
	}
}

// WithClock overrides the clock. Tests pin it to control the cutoff.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Sweep deletes unreferenced secrets older than the orphan age and returns
// how many it collected.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	secretIDs, err := r.secrets.List(ctx)
	if err != nil {
		return 0, err
	}

	referencedIDs, err := r.connectors.ListSecretIDs(ctx)
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]struct{}, len(referencedIDs))
	for _, id := range referencedIDs {
		referenced[id] = struct{}{}
	}

	cutoff := r.now().Add(-r.orphanAge)
	collected := 0

	for _, secretID := range secretIDs {
		if _, ok := referenced[secretID]; ok {
			continue
		}

		payload, err := r.secrets.Read(ctx, secretID)
		if err != nil {
			r.logger.Warn("failed to read candidate orphan secret",
				zap.String("secret_id", secretID), zap.Error(err))
			continue
		}

		createdAt, ok := payloadCreatedAt(payload)
		if !ok || createdAt.After(cutoff) {
			// Unknown age or too fresh: a provisioning call may own it.
			continue
		}

		if err := r.secrets.Delete(ctx, secretID); err != nil {
			r.logger.Error("failed to delete orphan secret",
				zap.String("secret_id", secretID), zap.Error(err))
			continue
		}

		r.logger.Info("collected orphan secret",
			zap.String("secret_id", secretID),
			zap.Time("created_at", createdAt))
		collected++
	}

	return collected, nil
}

func payloadCreatedAt(payload map[string]any) (time.Time, bool) {
	raw, ok := payload["createdAt"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
