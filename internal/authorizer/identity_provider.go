package authorizer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"github.com/i2-open/i2goKafkaAuth/internal/oidcClient"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore"
)

// IdentityProvider obtains a revocable principal for a transfer. Alternate
// identity back ends plug in here without touching the orchestrator.
type IdentityProvider interface {
	// GrantAccess returns the credentials the consumer will authenticate
	// with; Credentials.Subject is the broker principal name.
	GrantAccess(ctx context.Context, transferId string, address model.KafkaSourceAddress) (*model.Credentials, error)

	// RevokeAccess undoes whatever GrantAccess created on the identity
	// provider side for the transfer.
	RevokeAccess(ctx context.Context, transferId string) error
}

// OpenIdIdentityProvider registers a fresh client per transfer through OIDC
// dynamic client registration and resolves its userinfo subject.
type OpenIdIdentityProvider struct {
	service *oidcClient.OpenIdConnectService
	secrets corrStore.SecretStore
}

func NewOpenIdIdentityProvider(service *oidcClient.OpenIdConnectService, secrets corrStore.SecretStore) *OpenIdIdentityProvider {
	return &OpenIdIdentityProvider{service: service, secrets: secrets}
}

func (p *OpenIdIdentityProvider) GrantAccess(ctx context.Context, _ string, address model.KafkaSourceAddress) (*model.Credentials, error) {
	initialAccessToken, ok := p.secrets.ResolveSecret(address.RegisterTokenKey)
	if !ok {
		return nil, fmt.Errorf("no registration token found under key %s", address.RegisterTokenKey)
	}

	configuration, err := p.service.FetchConfiguration(ctx, address.OidcDiscoveryUrl)
	if err != nil {
		return nil, err
	}

	registration, err := p.service.RegisterClient(ctx, configuration, initialAccessToken)
	if err != nil {
		return nil, err
	}

	subject, err := p.service.ResolveSubject(ctx, configuration, registration)
	if err != nil {
		return nil, err
	}

	return &model.Credentials{
		Subject:       subject,
		ClientId:      registration.ClientId,
		ClientSecret:  registration.ClientSecret,
		TokenEndpoint: configuration.TokenEndpoint,
	}, nil
}

// RevokeAccess is a no-op: the dynamically registered client outlives the
// transfer. The broker grant is what actually gates access; the leftover
// client is a documented limitation.
// TODO: deregister the dynamic client once a registration management contract is settled with the IdP.
func (p *OpenIdIdentityProvider) RevokeAccess(_ context.Context, _ string) error {
	return nil
}

// StaticIdentityProvider serves deployments without dynamic registration: a
// pre-provisioned client is read from the secret store as serialized
// credentials. Every transfer shares the same principal, so broker-side
// revocation granularity is coarser than with the OIDC variant.
type StaticIdentityProvider struct {
	CredentialsKey string
	secrets        corrStore.SecretStore
}

func NewStaticIdentityProvider(credentialsKey string, secrets corrStore.SecretStore) *StaticIdentityProvider {
	return &StaticIdentityProvider{CredentialsKey: credentialsKey, secrets: secrets}
}

func (p *StaticIdentityProvider) GrantAccess(_ context.Context, _ string, _ model.KafkaSourceAddress) (*model.Credentials, error) {
	serialized, ok := p.secrets.ResolveSecret(p.CredentialsKey)
	if !ok {
		return nil, fmt.Errorf("no static credentials found under key %s", p.CredentialsKey)
	}

	var credentials model.Credentials
	if err := json.Unmarshal([]byte(serialized), &credentials); err != nil {
		return nil, &model.DecodeError{Call: "staticCredentials", Cause: err}
	}
	return &credentials, nil
}

func (p *StaticIdentityProvider) RevokeAccess(_ context.Context, _ string) error {
	return nil
}
