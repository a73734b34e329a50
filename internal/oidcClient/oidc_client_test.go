package oidcClient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"github.com/stretchr/testify/assert"
)

// newStubIdp starts an identity provider stub implementing discovery,
// dynamic registration, token issue, and userinfo.
func newStubIdp(t *testing.T, subject string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.OpenIdConfiguration{
			RegistrationEndpoint: server.URL + "/register",
			TokenEndpoint:        server.URL + "/token",
			UserInfoEndpoint:     server.URL + "/userinfo",
		})
	})

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer initial-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(model.ClientRegistration{
			ClientId:     "client-1",
			ClientSecret: "secret-1",
		})
	})

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") != "client-1" ||
			r.PostForm.Get("client_secret") != "secret-1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(model.TokenResponse{
			AccessToken: "access-1",
			TokenType:   "Bearer",
		})
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(model.UserInfo{Sub: subject})
	})

	return server
}

func TestFetchConfiguration(t *testing.T) {
	idp := newStubIdp(t, "user-42")
	service := NewOpenIdConnectService(5 * time.Second)

	configuration, err := service.FetchConfiguration(context.Background(), idp.URL+"/.well-known/openid-configuration")
	assert.NoError(t, err)
	assert.Equal(t, idp.URL+"/register", configuration.RegistrationEndpoint)
	assert.Equal(t, idp.URL+"/token", configuration.TokenEndpoint)
	assert.Equal(t, idp.URL+"/userinfo", configuration.UserInfoEndpoint)
}

func TestFetchConfiguration_ProtocolError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewOpenIdConnectService(5 * time.Second)
	_, err := service.FetchConfiguration(context.Background(), server.URL)

	var protocolErr *model.ProtocolError
	assert.True(t, errors.As(err, &protocolErr), "expected a ProtocolError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, protocolErr.Status)
	assert.Equal(t, "fetchOpenIdConfiguration", protocolErr.Call)
}

func TestFetchConfiguration_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "this is not json")
	}))
	defer server.Close()

	service := NewOpenIdConnectService(5 * time.Second)
	_, err := service.FetchConfiguration(context.Background(), server.URL)

	var decodeErr *model.DecodeError
	assert.True(t, errors.As(err, &decodeErr), "expected a DecodeError, got %v", err)
}

func TestRegisterClient(t *testing.T) {
	idp := newStubIdp(t, "user-42")
	service := NewOpenIdConnectService(5 * time.Second)

	configuration, err := service.FetchConfiguration(context.Background(), idp.URL+"/.well-known/openid-configuration")
	assert.NoError(t, err)

	registration, err := service.RegisterClient(context.Background(), configuration, "initial-token")
	assert.NoError(t, err)
	assert.Equal(t, "client-1", registration.ClientId)
	assert.Equal(t, "secret-1", registration.ClientSecret)
}

func TestRegisterClient_BadToken(t *testing.T) {
	idp := newStubIdp(t, "user-42")
	service := NewOpenIdConnectService(5 * time.Second)

	configuration, err := service.FetchConfiguration(context.Background(), idp.URL+"/.well-known/openid-configuration")
	assert.NoError(t, err)

	_, err = service.RegisterClient(context.Background(), configuration, "wrong-token")

	var protocolErr *model.ProtocolError
	assert.True(t, errors.As(err, &protocolErr), "expected a ProtocolError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, protocolErr.Status)
}

func TestResolveSubject(t *testing.T) {
	idp := newStubIdp(t, "user-42")
	service := NewOpenIdConnectService(5 * time.Second)

	configuration, err := service.FetchConfiguration(context.Background(), idp.URL+"/.well-known/openid-configuration")
	assert.NoError(t, err)

	registration, err := service.RegisterClient(context.Background(), configuration, "initial-token")
	assert.NoError(t, err)

	subject, err := service.ResolveSubject(context.Background(), configuration, registration)
	assert.NoError(t, err)
	assert.Equal(t, "user-42", subject)
}

func TestResolveSubject_TokenRejected(t *testing.T) {
	idp := newStubIdp(t, "user-42")
	service := NewOpenIdConnectService(5 * time.Second)

	configuration, err := service.FetchConfiguration(context.Background(), idp.URL+"/.well-known/openid-configuration")
	assert.NoError(t, err)

	_, err = service.ResolveSubject(context.Background(), configuration, &model.ClientRegistration{
		ClientId:     "unknown",
		ClientSecret: "unknown",
	})

	var protocolErr *model.ProtocolError
	assert.True(t, errors.As(err, &protocolErr), "expected a ProtocolError, got %v", err)
	assert.Equal(t, "token", protocolErr.Call)
}
