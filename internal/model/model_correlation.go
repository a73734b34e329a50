package model

import "time"

const (
	// CorrelationPending is set before the broker grant is attempted. A
	// pending record that outlives its provisioning call marks resources the
	// reconciliation sweep has to clean up.
	CorrelationPending = "pending"

	// CorrelationProvisioned means the broker grant succeeded and an EDR was
	// issued for the transfer.
	CorrelationProvisioned = "provisioned"
)

// CorrelationRecord maps a transfer id to the resources provisioned on its
// behalf. It must survive the gap between provisioning and revocation, which
// can span the whole transfer, so it is persisted durably including the admin
// connection properties needed to undo the grant after a restart.
type CorrelationRecord struct {
	TransferId string                    `json:"transferId" bson:"transfer_id"`
	State      string                    `json:"state" bson:"state"`
	Principal  string                    `json:"principal" bson:"principal"`
	GroupId    string                    `json:"groupId" bson:"group_id"`
	ClientId   string                    `json:"clientId" bson:"client_id"`
	AdminProps AdminConnectionProperties `json:"-" bson:"admin_props"`
	CreatedAt  time.Time                 `json:"createdAt" bson:"created_at"`
}
