package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrConnectorNotFound is the NotFound kind for connector resolution.
	ErrConnectorNotFound = errors.New("connector not found")

	// ErrConnectorArchived rejects provisioning against an id whose
	// connector was already torn down.
	ErrConnectorArchived = errors.New("connector is archived")

	// ErrConnectorMismatch rejects a provisioning retry whose provider or
	// account does not match the connector the id already belongs to. A
	// connector binds one provider account for life.
	ErrConnectorMismatch = errors.New("request does not match existing connector")
)

// UpstreamError wraps a failed call to one of the external collaborators:
// the secret store, a metadata store, or a destination database.
type UpstreamError struct {
	System string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.System, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// PartialProvisioningError reports a step that failed after the metadata
// transaction committed: the connector is live but incomplete, and is marked
// degraded so listings can tell it apart from a healthy one.
type PartialProvisioningError struct {
	ConnectorID uuid.UUID
	Step        string
	Err         error
}

func (e *PartialProvisioningError) Error() string {
	return fmt.Sprintf("connector %s provisioned but %s failed: %s", e.ConnectorID, e.Step, e.Err)
}

func (e *PartialProvisioningError) Unwrap() error {
	return e.Err
}

// CompensationError reports that the best-effort secret delete after a
// rolled-back metadata transaction itself failed, leaving an orphaned secret
// for the reconciliation sweep to collect. It carries both causes.
type CompensationError struct {
	SecretID        string
	Cause           error
	CompensationErr error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("metadata write failed (%s) and secret %s could not be cleaned up (%s)",
		e.Cause, e.SecretID, e.CompensationErr)
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}
