package authorizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/aclManager"
	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore"
	"github.com/segmentio/ksuid"
)

var authLog = log.New(os.Stdout, "AUTHZ: ", log.Ldate|log.Ltime)

// Authorizer is the component the transfer lifecycle talks to. It composes
// the identity provider and the ACL manager into the provision/revoke
// protocol and owns the correlation state between a transfer id and the
// resources created for it.
type Authorizer struct {
	identity IdentityProvider
	acls     aclManager.AccessControlManager
	provider corrStore.Provider
}

func NewAuthorizer(identity IdentityProvider, acls aclManager.AccessControlManager, provider corrStore.Provider) *Authorizer {
	return &Authorizer{
		identity: identity,
		acls:     acls,
		provider: provider,
	}
}

// Provision obtains a principal, grants it broker access scoped to the topic
// and a fresh consumer group, persists the correlation, and renders the
// credential bundle. Steps are strictly sequential; the first failure is
// returned verbatim and no correlation record survives a failed call.
//
// The pending record is written before the broker grant, so a crash between
// client registration and the grant leaves a trace Reconcile can clean up
// instead of an untracked grant. Conversely, if the pending record cannot be
// promoted after a successful grant (a concurrent sweep removed it, or the
// store failed) the grant is revoked before the error is returned, so a grant
// never exists without a correlation record.
func (a *Authorizer) Provision(ctx context.Context, transferId string, address model.KafkaSourceAddress) (model.EndpointDataReference, error) {
	adminBlob, ok := a.provider.ResolveSecret(address.AdminPropsKey)
	if !ok {
		return nil, fmt.Errorf("no admin properties found under key %s", address.AdminPropsKey)
	}
	adminProps, err := model.ParseAdminProperties(adminBlob)
	if err != nil {
		return nil, err
	}

	credentials, err := a.identity.GrantAccess(ctx, transferId, address)
	if err != nil {
		return nil, err
	}

	// Fresh per transfer so concurrent consumers never collide on broker
	// side consumer-group state.
	groupId := ksuid.New().String()

	record := model.CorrelationRecord{
		TransferId: transferId,
		State:      model.CorrelationPending,
		Principal:  credentials.Subject,
		GroupId:    groupId,
		ClientId:   credentials.ClientId,
		AdminProps: adminProps,
		CreatedAt:  time.Now(),
	}
	if err := a.provider.PutCorrelation(record); err != nil {
		return nil, err
	}

	if err := a.acls.Grant(ctx, adminProps, credentials.Subject, address.Topic, groupId); err != nil {
		// The grant failed as a unit; remove the pending record so the
		// caller observes no partial provisioned state.
		if delErr := a.provider.DeleteCorrelation(transferId); delErr != nil {
			authLog.Printf("Transfer [%s]: cannot remove pending correlation after failed grant: %s", transferId, delErr.Error())
		}
		return nil, err
	}

	if err := a.provider.MarkProvisioned(transferId); err != nil {
		// The pending record is gone or unwritable. Take the grant back so
		// no broker binding is left without a correlation record.
		if revErr := a.acls.Revoke(ctx, adminProps, credentials.Subject); revErr != nil {
			authLog.Printf("Transfer [%s]: cannot revoke grant after failed promotion: %s", transferId, revErr.Error())
		}
		if delErr := a.provider.DeleteCorrelation(transferId); delErr != nil && !errors.Is(delErr, model.ErrNotFound) {
			authLog.Printf("Transfer [%s]: cannot remove correlation after failed promotion: %s", transferId, delErr.Error())
		}
		return nil, &model.UnexpectedError{Op: "cannot promote pending correlation", Cause: err}
	}

	authLog.Printf("Transfer [%s] provisioned: principal=%s group=%s topic=%s", transferId, credentials.Subject, groupId, address.Topic)
	return model.NewEndpointDataReference(address, *credentials, groupId), nil
}

// Revoke removes the broker grants issued for the transfer and deletes the
// correlation. An unknown transfer id returns model.ErrNotFound, which
// callers treat as already revoked; no broker call is made in that case. A
// failed broker revoke keeps the record so the caller can retry.
func (a *Authorizer) Revoke(ctx context.Context, transferId string) error {
	record, err := a.provider.GetCorrelation(transferId)
	if err != nil {
		return err
	}

	if err := a.acls.Revoke(ctx, record.AdminProps, record.Principal); err != nil {
		return err
	}

	if err := a.identity.RevokeAccess(ctx, transferId); err != nil {
		return err
	}

	if err := a.provider.DeleteCorrelation(transferId); err != nil {
		return err
	}

	authLog.Printf("Transfer [%s] revoked: principal=%s", transferId, record.Principal)
	return nil
}

// Reconcile sweeps pending correlations older than the cutoff: records left
// behind when a provisioning call died between client registration and the
// broker grant. Broker-side ACLs for the pending principal are revoked and
// the record dropped. The registered client itself cannot be removed without an IdP
// deprovisioning contract, so it is logged for operator follow-up.
func (a *Authorizer) Reconcile(ctx context.Context, olderThan time.Time) (int, error) {
	records, err := a.provider.ListPending(olderThan)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, record := range records {
		if err := a.acls.Revoke(ctx, record.AdminProps, record.Principal); err != nil {
			authLog.Printf("Reconcile [%s]: broker revoke failed, will retry next sweep: %s", record.TransferId, err.Error())
			continue
		}
		if err := a.provider.DeleteCorrelation(record.TransferId); err != nil {
			authLog.Printf("Reconcile [%s]: cannot delete correlation: %s", record.TransferId, err.Error())
			continue
		}
		authLog.Printf("Reconcile [%s]: cleaned stale pending grant, orphaned IdP client [%s] left registered", record.TransferId, record.ClientId)
		swept++
	}
	return swept, nil
}

// PendingCount reports the number of pending correlations older than the
// cutoff, exposed as a gauge by the server. Fresh pending records belong to
// provisions still in flight and are not counted.
func (a *Authorizer) PendingCount(olderThan time.Time) float64 {
	records, err := a.provider.ListPending(olderThan)
	if err != nil {
		authLog.Printf("Cannot count pending correlations: %s", err.Error())
		return 0
	}
	return float64(len(records))
}
