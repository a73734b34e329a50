package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdminProperties(t *testing.T) {
	// Blob as written by a java connector, including the store comment.
	serialized := "#Serialized kafka admin properties\n" +
		"#Tue Mar 03 10:15:30 CET 2026\n" +
		"bootstrap.servers=broker1:9092,broker2:9092\n" +
		"security.protocol=SASL_PLAINTEXT\n" +
		"sasl.mechanism=OAUTHBEARER\n" +
		"sasl.oauthbearer.client.id=admin-client\n" +
		"sasl.oauthbearer.client.secret=admin-secret\n" +
		"sasl.oauthbearer.token.endpoint.url=https://idp/token\n"

	props, err := ParseAdminProperties(serialized)
	assert.NoError(t, err)
	assert.Equal(t, "broker1:9092,broker2:9092", props.BootstrapServers)
	assert.Equal(t, SecurityProtocolSaslPlaintext, props.SecurityProtocol)
	assert.Equal(t, SaslMechanismOAuthBearer, props.SaslMechanism)
	assert.Equal(t, "admin-client", props.ClientId)
	assert.Equal(t, "admin-secret", props.ClientSecret)
	assert.Equal(t, "https://idp/token", props.TokenEndpoint)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, props.BootstrapServerList())
}

func TestParseAdminProperties_RoundTrip(t *testing.T) {
	props := AdminConnectionProperties{
		BootstrapServers: "broker1:9092",
		SecurityProtocol: SecurityProtocolSaslSsl,
		SaslMechanism:    SaslMechanismPlain,
		Username:         "admin",
		Password:         "changeit",
	}

	parsed, err := ParseAdminProperties(props.Serialize())
	assert.NoError(t, err)
	assert.Equal(t, props, parsed)
}

func TestParseAdminProperties_MissingBootstrap(t *testing.T) {
	_, err := ParseAdminProperties("sasl.mechanism=PLAIN\n")
	assert.Error(t, err)
}

func TestParseAdminProperties_InvalidLine(t *testing.T) {
	_, err := ParseAdminProperties("bootstrap.servers broker1:9092\n")
	assert.Error(t, err)
}

func TestNewEndpointDataReference(t *testing.T) {
	address := KafkaSourceAddress{
		BootstrapServers: "broker1:9092",
		Topic:            "telemetry",
		SecurityProtocol: SecurityProtocolSaslPlaintext,
		SaslMechanism:    SaslMechanismOAuthBearer,
		AdminPropsKey:    "k2",
	}
	credentials := Credentials{
		Subject:       "user-42",
		ClientId:      "client-1",
		ClientSecret:  "secret-1",
		TokenEndpoint: "https://idp/token",
	}

	edr := NewEndpointDataReference(address, credentials, "group-1")

	assert.Equal(t, "telemetry", edr[PropTopic])
	assert.Equal(t, "broker1:9092", edr[PropBootstrapServers])
	assert.Equal(t, "group-1", edr[PropGroupId])
	assert.Equal(t, "client-1", edr[PropClientId])
	assert.Equal(t, "secret-1", edr[PropClientSecret])
	assert.Equal(t, "https://idp/token", edr[PropTokenEndpoint])

	// Admin-level material must never leak into the bundle.
	for _, value := range edr {
		assert.NotEqual(t, "k2", value)
	}
}
