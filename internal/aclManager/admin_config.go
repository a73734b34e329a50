package aclManager

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/i2-open/i2goKafkaAuth/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// oauthTokenProvider adapts an oauth2 client-credentials token source to
// sarama's SASL/OAUTHBEARER callback.
type oauthTokenProvider struct {
	tokenSource oauth2.TokenSource
}

func (p *oauthTokenProvider) Token() (*sarama.AccessToken, error) {
	token, err := p.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &sarama.AccessToken{Token: token.AccessToken}, nil
}

func newOAuthTokenProvider(ctx context.Context, props model.AdminConnectionProperties) *oauthTokenProvider {
	config := clientcredentials.Config{
		ClientID:     props.ClientId,
		ClientSecret: props.ClientSecret,
		TokenURL:     props.TokenEndpoint,
	}
	return &oauthTokenProvider{tokenSource: config.TokenSource(ctx)}
}

// buildAdminConfig maps the typed admin connection properties onto a sarama
// client configuration.
func buildAdminConfig(ctx context.Context, props model.AdminConnectionProperties) (*sarama.Config, error) {
	config := sarama.NewConfig()
	config.ClientID = "i2goKafkaAuth-admin"
	config.Version = sarama.V3_6_0_0

	switch props.SecurityProtocol {
	case model.SecurityProtocolSaslSsl:
		config.Net.TLS.Enable = true
	case model.SecurityProtocolSaslPlaintext, "":
		// plaintext transport
	default:
		return nil, fmt.Errorf("unsupported security protocol: %s", props.SecurityProtocol)
	}

	switch props.SaslMechanism {
	case model.SaslMechanismOAuthBearer:
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypeOAuth
		config.Net.SASL.TokenProvider = newOAuthTokenProvider(ctx, props)
	case model.SaslMechanismPlain:
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		config.Net.SASL.User = props.Username
		config.Net.SASL.Password = props.Password
	case "":
		// unauthenticated admin listener, e.g. a local test broker
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", props.SaslMechanism)
	}

	return config, nil
}

func openClusterAdmin(ctx context.Context, props model.AdminConnectionProperties) (sarama.ClusterAdmin, error) {
	config, err := buildAdminConfig(ctx, props)
	if err != nil {
		return nil, err
	}
	return sarama.NewClusterAdmin(props.BootstrapServerList(), config)
}
