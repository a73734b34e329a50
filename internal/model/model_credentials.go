package model

// OpenIdConfiguration is the subset of the provider metadata document this
// subsystem uses.
type OpenIdConfiguration struct {
	RegistrationEndpoint string `json:"registration_endpoint"`
	TokenEndpoint        string `json:"token_endpoint"`
	UserInfoEndpoint     string `json:"userinfo_endpoint"`
}

// ClientRegistration is the identity provider's answer to a dynamic client
// registration request.
type ClientRegistration struct {
	ClientId     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenResponse is a client-credentials grant response.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserInfo carries the stable subject claim of a registered client. The sub
// value becomes the broker-level principal name.
type UserInfo struct {
	Sub string `json:"sub"`
}

// Credentials is the provisioned principal for one transfer: the subject the
// broker ACLs are granted against plus the client-credentials pair the
// consumer authenticates with. Created at provisioning, consulted at
// revocation, never shared across transfers.
type Credentials struct {
	Subject       string `json:"subject"`
	ClientId      string `json:"clientId"`
	ClientSecret  string `json:"clientSecret"`
	TokenEndpoint string `json:"tokenEndpoint"`
}
