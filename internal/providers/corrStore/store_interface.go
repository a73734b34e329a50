package corrStore

import (
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

// SecretStore is the opaque key to secret collaborator used to fetch the
// registration bootstrap token and the admin-properties blob. Absent keys are
// reported through the bool, not an error.
type SecretStore interface {
	ResolveSecret(key string) (string, bool)
	StoreSecret(key string, value string) error
	DeleteSecret(key string) error
}

// CorrelationStore persists the mapping from a transfer id to the resources
// provisioned on its behalf. Records must survive process restarts: the gap
// between provisioning and revocation can span the whole transfer.
//
// Invariant: a provisioned record exists if and only if an ACL grant exists
// for that transfer id. The pending state covers the window between client
// registration and the broker grant so that a crash inside that window leaves
// a trace for the reconciliation sweep instead of a silently orphaned grant.
type CorrelationStore interface {
	PutCorrelation(record model.CorrelationRecord) error

	// GetCorrelation returns model.ErrNotFound when no record exists.
	GetCorrelation(transferId string) (*model.CorrelationRecord, error)

	// MarkProvisioned promotes a pending record after a successful grant.
	MarkProvisioned(transferId string) error

	DeleteCorrelation(transferId string) error

	// ListPending returns pending records created before the cutoff.
	ListPending(olderThan time.Time) ([]model.CorrelationRecord, error)
}

// Provider combines the two storage concerns behind one handle, mirroring how
// the deployment backs both with the same database.
type Provider interface {
	CorrelationStore
	SecretStore
	Name() string
	Check() error
	Close() error
}
