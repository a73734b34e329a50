package authorizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore/mem_provider"
	"github.com/stretchr/testify/assert"
)

const adminBlob = "bootstrap.servers=broker1:9092\nsecurity.protocol=SASL_PLAINTEXT\nsasl.mechanism=OAUTHBEARER\n" +
	"sasl.oauthbearer.client.id=admin\nsasl.oauthbearer.client.secret=admin-secret\nsasl.oauthbearer.token.endpoint.url=https://idp/token\n"

type grantCall struct {
	Principal string
	Topic     string
	GroupId   string
}

// spyAclManager records grant/revoke calls and can be told to fail. onGrant,
// when set, runs after a successful grant before control returns to the
// caller.
type spyAclManager struct {
	mu       sync.Mutex
	grants   []grantCall
	revokes  []string
	failNext error
	onGrant  func()
}

func (s *spyAclManager) Grant(_ context.Context, _ model.AdminConnectionProperties, principal string, topic string, groupId string) error {
	s.mu.Lock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		s.mu.Unlock()
		return err
	}
	s.grants = append(s.grants, grantCall{Principal: principal, Topic: topic, GroupId: groupId})
	hook := s.onGrant
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *spyAclManager) Revoke(_ context.Context, _ model.AdminConnectionProperties, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.revokes = append(s.revokes, principal)
	return nil
}

// stubIdentityProvider hands out a distinct principal per call.
type stubIdentityProvider struct {
	mu      sync.Mutex
	subject string
	calls   int
	err     error
}

func (s *stubIdentityProvider) GrantAccess(_ context.Context, _ string, _ model.KafkaSourceAddress) (*model.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.calls++
	subject := s.subject
	if subject == "" {
		subject = fmt.Sprintf("subject-%d", s.calls)
	}
	return &model.Credentials{
		Subject:       subject,
		ClientId:      fmt.Sprintf("client-%d", s.calls),
		ClientSecret:  "secret",
		TokenEndpoint: "https://idp/token",
	}, nil
}

func (s *stubIdentityProvider) RevokeAccess(_ context.Context, _ string) error {
	return nil
}

func newTestAddress(topic string) model.KafkaSourceAddress {
	return model.KafkaSourceAddress{
		BootstrapServers: "broker1:9092",
		Topic:            topic,
		SecurityProtocol: model.SecurityProtocolSaslPlaintext,
		SaslMechanism:    model.SaslMechanismOAuthBearer,
		OidcDiscoveryUrl: "https://idp/.well-known/openid-configuration",
		RegisterTokenKey: "k1",
		AdminPropsKey:    "k2",
	}
}

func newTestAuthorizer(t *testing.T, identity IdentityProvider, acls *spyAclManager) (*Authorizer, *mem_provider.MemProvider) {
	t.Helper()

	provider, err := mem_provider.Open("mockdb://localhost/", "test")
	assert.NoError(t, err)
	assert.NoError(t, provider.StoreSecret("k1", "initial-token"))
	assert.NoError(t, provider.StoreSecret("k2", adminBlob))

	return NewAuthorizer(identity, acls, provider), provider
}

func TestProvisionThenRevoke(t *testing.T) {
	acls := &spyAclManager{}
	identity := &stubIdentityProvider{subject: "user-42"}
	authz, provider := newTestAuthorizer(t, identity, acls)

	edr, err := authz.Provision(context.Background(), "tx-1", newTestAddress("telemetry"))
	assert.NoError(t, err)
	assert.Equal(t, "telemetry", edr[model.PropTopic])
	assert.Len(t, acls.grants, 1)
	assert.Equal(t, "user-42", acls.grants[0].Principal)
	assert.Equal(t, "telemetry", acls.grants[0].Topic)
	assert.NotEmpty(t, acls.grants[0].GroupId)
	assert.Equal(t, acls.grants[0].GroupId, edr[model.PropGroupId])

	record, err := provider.GetCorrelation("tx-1")
	assert.NoError(t, err)
	assert.Equal(t, model.CorrelationProvisioned, record.State)
	assert.Equal(t, "user-42", record.Principal)

	err = authz.Revoke(context.Background(), "tx-1")
	assert.NoError(t, err)

	// The revoke targets exactly the principal issued at provisioning.
	assert.Equal(t, []string{"user-42"}, acls.revokes)

	_, err = provider.GetCorrelation("tx-1")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestRevoke_UnknownTransfer(t *testing.T) {
	acls := &spyAclManager{}
	authz, _ := newTestAuthorizer(t, &stubIdentityProvider{}, acls)

	err := authz.Revoke(context.Background(), "never-provisioned")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.Empty(t, acls.revokes, "no broker call may be made for an unknown transfer")
}

func TestRevoke_Twice(t *testing.T) {
	acls := &spyAclManager{}
	authz, _ := newTestAuthorizer(t, &stubIdentityProvider{subject: "user-42"}, acls)

	_, err := authz.Provision(context.Background(), "tx-1", newTestAddress("telemetry"))
	assert.NoError(t, err)

	assert.NoError(t, authz.Revoke(context.Background(), "tx-1"))

	err = authz.Revoke(context.Background(), "tx-1")
	assert.True(t, errors.Is(err, model.ErrNotFound), "second revoke is an idempotent terminal state, not a broker error")
	assert.Len(t, acls.revokes, 1)
}

func TestProvision_RegistrationFails(t *testing.T) {
	acls := &spyAclManager{}
	identity := &stubIdentityProvider{err: &model.ProtocolError{Call: "registerNewClient", Status: 401}}
	authz, provider := newTestAuthorizer(t, identity, acls)

	_, err := authz.Provision(context.Background(), "tx-1", newTestAddress("telemetry"))
	assert.Error(t, err)

	var protocolErr *model.ProtocolError
	assert.True(t, errors.As(err, &protocolErr))
	assert.Empty(t, acls.grants, "grant must never be invoked after a failed registration")

	_, err = provider.GetCorrelation("tx-1")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestProvision_GrantFails(t *testing.T) {
	acls := &spyAclManager{failNext: &model.UnexpectedError{Op: "cannot create ACLs", Cause: errors.New("broker down")}}
	authz, provider := newTestAuthorizer(t, &stubIdentityProvider{subject: "user-42"}, acls)

	_, err := authz.Provision(context.Background(), "tx-1", newTestAddress("telemetry"))
	assert.Error(t, err)

	var unexpectedErr *model.UnexpectedError
	assert.True(t, errors.As(err, &unexpectedErr))

	// Even though a client was registered, no correlation record survives.
	_, err = provider.GetCorrelation("tx-1")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestProvision_MissingAdminProperties(t *testing.T) {
	acls := &spyAclManager{}
	identity := &stubIdentityProvider{}
	provider, err := mem_provider.Open("mockdb://localhost/", "test")
	assert.NoError(t, err)
	assert.NoError(t, provider.StoreSecret("k1", "initial-token"))

	authz := NewAuthorizer(identity, acls, provider)
	_, err = authz.Provision(context.Background(), "tx-1", newTestAddress("telemetry"))
	assert.Error(t, err)
	assert.Empty(t, acls.grants)
}

func TestProvision_Concurrent(t *testing.T) {
	acls := &spyAclManager{}
	authz, _ := newTestAuthorizer(t, &stubIdentityProvider{}, acls)

	topic := gofakeit.Word()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := authz.Provision(context.Background(), fmt.Sprintf("tx-%d", n), newTestAddress(topic))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, acls.grants, 2)
	assert.NotEqual(t, acls.grants[0].GroupId, acls.grants[1].GroupId, "group ids must be unique per transfer")
	assert.NotEqual(t, acls.grants[0].Principal, acls.grants[1].Principal, "principals must never be shared across transfers")
}

func TestProvision_SweepDuringGrant(t *testing.T) {
	acls := &spyAclManager{}
	authz, provider := newTestAuthorizer(t, &stubIdentityProvider{subject: "user-42"}, acls)

	// A sweep with no age cutoff lands between the broker grant and the
	// promotion of the pending record.
	acls.onGrant = func() {
		_, err := authz.Reconcile(context.Background(), time.Now())
		assert.NoError(t, err)
	}

	_, err := authz.Provision(context.Background(), "tx-race", newTestAddress("telemetry"))
	assert.Error(t, err)

	var unexpectedErr *model.UnexpectedError
	assert.True(t, errors.As(err, &unexpectedErr))

	// The grant issued during the race must have been taken back.
	assert.Len(t, acls.grants, 1)
	assert.NotEmpty(t, acls.revokes)
	assert.Equal(t, "user-42", acls.revokes[len(acls.revokes)-1])

	_, err = provider.GetCorrelation("tx-race")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestPendingCount(t *testing.T) {
	acls := &spyAclManager{}
	authz, provider := newTestAuthorizer(t, &stubIdentityProvider{}, acls)

	adminProps, err := model.ParseAdminProperties(adminBlob)
	assert.NoError(t, err)

	stale := model.CorrelationRecord{
		TransferId: "tx-stale",
		State:      model.CorrelationPending,
		Principal:  "orphan-subject",
		AdminProps: adminProps,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}
	fresh := model.CorrelationRecord{
		TransferId: "tx-fresh",
		State:      model.CorrelationPending,
		Principal:  "in-flight",
		AdminProps: adminProps,
		CreatedAt:  time.Now(),
	}
	assert.NoError(t, provider.PutCorrelation(stale))
	assert.NoError(t, provider.PutCorrelation(fresh))

	assert.Equal(t, float64(1), authz.PendingCount(time.Now().Add(-time.Hour)))
}

func TestReconcile_SweepsStalePending(t *testing.T) {
	acls := &spyAclManager{}
	authz, provider := newTestAuthorizer(t, &stubIdentityProvider{}, acls)

	adminProps, err := model.ParseAdminProperties(adminBlob)
	assert.NoError(t, err)

	// Simulate a provisioning call that died between registration and grant.
	stale := model.CorrelationRecord{
		TransferId: "tx-stale",
		State:      model.CorrelationPending,
		Principal:  "orphan-subject",
		GroupId:    "orphan-group",
		ClientId:   "orphan-client",
		AdminProps: adminProps,
		CreatedAt:  time.Now().Add(-2 * time.Hour),
	}
	assert.NoError(t, provider.PutCorrelation(stale))

	swept, err := authz.Reconcile(context.Background(), time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, []string{"orphan-subject"}, acls.revokes)

	_, err = provider.GetCorrelation("tx-stale")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestReconcile_IgnoresFreshPending(t *testing.T) {
	acls := &spyAclManager{}
	authz, provider := newTestAuthorizer(t, &stubIdentityProvider{}, acls)

	adminProps, err := model.ParseAdminProperties(adminBlob)
	assert.NoError(t, err)

	fresh := model.CorrelationRecord{
		TransferId: "tx-fresh",
		State:      model.CorrelationPending,
		Principal:  "in-flight",
		AdminProps: adminProps,
		CreatedAt:  time.Now(),
	}
	assert.NoError(t, provider.PutCorrelation(fresh))

	swept, err := authz.Reconcile(context.Background(), time.Now().Add(-time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 0, swept)
	assert.Empty(t, acls.revokes)
}
