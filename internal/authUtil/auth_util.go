package authUtil

import (
	"crypto/rand"
	"crypto/rsa"

	"github.com/MicahParks/keyfunc"
)

// NewSelfSignedIssuer generates a fresh RSA key pair and returns an issuer
// that validates against its own public key. Tokens issued before a restart
// do not survive one; deployments that need longer-lived tokens point
// PublicKey at an external JWKS instead.
func NewSelfSignedIssuer(tokenIssuer string) (*AuthIssuer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	givenKey := keyfunc.NewGivenRSACustomWithOptions(&privateKey.PublicKey, keyfunc.GivenKeyOptions{
		Algorithm: "RS256",
	})
	givenKeys := map[string]keyfunc.GivenKey{tokenIssuer: givenKey}

	return &AuthIssuer{
		TokenIssuer: tokenIssuer,
		PrivateKey:  privateKey,
		PublicKey:   keyfunc.NewGiven(givenKeys),
	}, nil
}
