package oidcClient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

const registrationBody = `{"grant_types":["client_credentials"]}`

// tokenScope requests the claims needed for the userinfo lookup.
const tokenScope = "openid roles"

// OpenIdConnectService performs the identity provider side of provisioning:
// discovery, dynamic client registration, and subject resolution. It keeps no
// state between calls; every transfer gets a fresh registration so that each
// one is independently revocable.
//
// RegisterClient is not idempotent (registering twice creates two clients).
// Callers that retry must restart from FetchConfiguration rather than re-POST.
type OpenIdConnectService struct {
	Client *http.Client
}

func NewOpenIdConnectService(timeout time.Duration) *OpenIdConnectService {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenIdConnectService{
		Client: &http.Client{Timeout: timeout},
	}
}

// FetchConfiguration retrieves the provider metadata from the well-known
// discovery document.
func (o *OpenIdConnectService) FetchConfiguration(ctx context.Context, discoveryUrl string) (*model.OpenIdConfiguration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryUrl, nil)
	if err != nil {
		return nil, err
	}

	var configuration model.OpenIdConfiguration
	if err := o.execute("fetchOpenIdConfiguration", req, &configuration); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// RegisterClient registers a new client-credentials-capable client using the
// supplied initial access token. The token is a limited-use credential
// resolved by the caller and is never retained here.
func (o *OpenIdConnectService) RegisterClient(ctx context.Context, configuration *model.OpenIdConfiguration, initialAccessToken string) (*model.ClientRegistration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, configuration.RegistrationEndpoint, strings.NewReader(registrationBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+initialAccessToken)
	req.Header.Set("Content-Type", "application/json")

	var registration model.ClientRegistration
	if err := o.execute("registerNewClient", req, &registration); err != nil {
		return nil, err
	}
	return &registration, nil
}

// ResolveSubject performs the client-credentials grant for a freshly
// registered client and looks up its userinfo subject. The subject becomes
// the broker principal name, so it must be stable for the client's lifetime.
func (o *OpenIdConnectService) ResolveSubject(ctx context.Context, configuration *model.OpenIdConfiguration, registration *model.ClientRegistration) (string, error) {
	token, err := o.issueToken(ctx, configuration, registration)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configuration.UserInfoEndpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", token.TokenType+" "+token.AccessToken)

	var userInfo model.UserInfo
	if err := o.execute("userinfo", req, &userInfo); err != nil {
		return "", err
	}
	return userInfo.Sub, nil
}

func (o *OpenIdConnectService) issueToken(ctx context.Context, configuration *model.OpenIdConfiguration, registration *model.ClientRegistration) (*model.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", registration.ClientId)
	form.Set("client_secret", registration.ClientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, configuration.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token model.TokenResponse
	if err := o.execute("token", req, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (o *OpenIdConnectService) execute(callName string, req *http.Request, out any) error {
	resp, err := o.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", callName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &model.ProtocolError{Call: callName, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.DecodeError{Call: callName, Cause: err}
	}
	return nil
}
