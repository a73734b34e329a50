package model

// Property names used in serialized source addresses and endpoint data
// references. These match the flat property bag the control plane exchanges
// for Kafka sources.
const (
	PropTopic            = "topic"
	PropBootstrapServers = "kafka.bootstrap.servers"
	PropSecurityProtocol = "kafka.security.protocol"
	PropSaslMechanism    = "kafka.sasl.mechanism"
	PropGroupId          = "kafka.group.id"
	PropClientId         = "clientId"
	PropClientSecret     = "clientSecret"
	PropTokenEndpoint    = "tokenEndpoint"
)

// KafkaSourceAddress describes the Kafka source of a pull transfer. It is
// supplied by the caller per transfer and never modified by this subsystem.
// The two *Key fields are secret store keys, not secret values: the bootstrap
// token for dynamic client registration and the serialized broker-admin
// connection properties are resolved at provisioning time.
type KafkaSourceAddress struct {
	BootstrapServers string `json:"kafka.bootstrap.servers"`
	Topic            string `json:"topic"`
	SecurityProtocol string `json:"kafka.security.protocol"`
	SaslMechanism    string `json:"kafka.sasl.mechanism"`
	OidcDiscoveryUrl string `json:"oidcDiscoveryUrl"`
	RegisterTokenKey string `json:"oidcRegisterClientTokenKey"`
	AdminPropsKey    string `json:"kafkaAdminPropertiesKey"`
}

// EndpointDataReference is the credential bundle returned to the transfer
// requester: everything a consumer needs to reach the topic directly, and
// nothing else. Broker-admin secrets never appear here.
type EndpointDataReference map[string]string

// NewEndpointDataReference renders the EDR for a provisioned transfer.
func NewEndpointDataReference(address KafkaSourceAddress, credentials Credentials, groupId string) EndpointDataReference {
	return EndpointDataReference{
		PropTopic:            address.Topic,
		PropBootstrapServers: address.BootstrapServers,
		PropSecurityProtocol: address.SecurityProtocol,
		PropSaslMechanism:    address.SaslMechanism,
		PropGroupId:          groupId,
		PropClientId:         credentials.ClientId,
		PropClientSecret:     credentials.ClientSecret,
		PropTokenEndpoint:    credentials.TokenEndpoint,
	}
}
