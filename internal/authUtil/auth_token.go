package authUtil

import (
	"crypto/rsa"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/segmentio/ksuid"
)

const (
	// ScopeProvision allows creating and revoking authorizations.
	ScopeProvision = "provision"
	// ScopeAdmin additionally allows reading correlation state and running sweeps.
	ScopeAdmin = "admin"
	ScopeRoot  = "root"
)

type AuthContext struct {
	TransferId string
	Token      *ProvisioningAuthToken
}

// AuthIssuer issues and validates the bearer tokens protecting the
// management API. Validation runs against a JWKS so the signing key can be
// hosted by an external issuer.
type AuthIssuer struct {
	TokenIssuer string
	PrivateKey  *rsa.PrivateKey
	PublicKey   *keyfunc.JWKS
}

type ProvisioningAuthToken struct {
	TransferIds []string `json:"tid,omitempty"`
	Scopes      []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken issues a management API token. With transferIds empty the token
// is valid for any transfer.
func (a *AuthIssuer) IssueToken(scopes []string, transferIds []string) (string, error) {
	exp := time.Now().AddDate(0, 0, 90)

	claims := ProvisioningAuthToken{
		TransferIds: transferIds,
		Scopes:      scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
			Audience:  []string{a.TokenIssuer},
			Issuer:    a.TokenIssuer,
			ID:        ksuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["typ"] = "jwt"
	token.Header["kid"] = a.TokenIssuer
	return token.SignedString(a.PrivateKey)
}

// ValidateAuthorization evaluates the authorization header and checks that
// one of the accepted scopes is asserted. The transfer id is taken from the
// request path. 200 OK means authorized.
func (a *AuthIssuer) ValidateAuthorization(r *http.Request, scopes []string) (*AuthContext, int) {
	transferRequested := mux.Vars(r)["transferId"]

	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return nil, http.StatusUnauthorized
	}

	parts := strings.Split(authorization, " ")
	if len(parts) < 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized
	}

	token, err := a.ParseAuthToken(parts[1])
	if err != nil {
		log.Printf("Authorization invalid: [%s]", err.Error())
		return nil, http.StatusUnauthorized
	}

	if token.IsAuthorized(transferRequested, scopes) {
		return &AuthContext{
			TransferId: transferRequested,
			Token:      token,
		}, http.StatusOK
	}
	return nil, http.StatusForbidden
}

// ParseAuthToken parses and validates a bearer token. A *ProvisioningAuthToken
// is only returned if the token validated.
func (a *AuthIssuer) ParseAuthToken(tokenString string) (*ProvisioningAuthToken, error) {
	if a.PublicKey == nil {
		return nil, errors.New("no public key provided to validate authorization token")
	}

	tokenString = strings.TrimSpace(tokenString)

	token, err := jwt.ParseWithClaims(tokenString, &ProvisioningAuthToken{}, a.PublicKey.Keyfunc)
	if err != nil {
		return nil, err
	}
	if token.Header["typ"] != "jwt" {
		return nil, errors.New("token type is not an authorization token (`jwt`)")
	}

	if claims, ok := token.Claims.(*ProvisioningAuthToken); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid authorization token")
}

func (t *ProvisioningAuthToken) IsScopeMatch(scopesAccepted []string) bool {
	for _, acceptedScope := range scopesAccepted {
		for _, scope := range t.Scopes {
			if strings.EqualFold(scope, ScopeRoot) {
				return true
			}
			if strings.EqualFold(scope, acceptedScope) {
				return true
			}
		}
	}
	return false
}

func (t *ProvisioningAuthToken) IsAuthorized(transferId string, scopesAccepted []string) bool {
	scopeMatch := t.IsScopeMatch(scopesAccepted)
	if transferId == "" {
		return scopeMatch
	}

	// A token without transfer ids is valid for any transfer
	if len(t.TransferIds) == 0 {
		return scopeMatch
	}

	for _, id := range t.TransferIds {
		if strings.EqualFold(id, transferId) {
			return scopeMatch
		}
	}
	return false
}
