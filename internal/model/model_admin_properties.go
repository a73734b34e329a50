package model

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// AdminConnectionProperties holds the broker-administrator connection
// settings. Outside the secret store they are always this typed struct; the
// flat key=value form exists only at the store boundary so that blobs written
// by other connector implementations parse unchanged.
type AdminConnectionProperties struct {
	BootstrapServers string `structs:"bootstrap.servers"`
	SecurityProtocol string `structs:"security.protocol"`
	SaslMechanism    string `structs:"sasl.mechanism"`
	ClientId         string `structs:"sasl.oauthbearer.client.id"`
	ClientSecret     string `structs:"sasl.oauthbearer.client.secret"`
	TokenEndpoint    string `structs:"sasl.oauthbearer.token.endpoint.url"`
	Username         string `structs:"sasl.plain.username"`
	Password         string `structs:"sasl.plain.password"`
}

const (
	SecurityProtocolSaslPlaintext = "SASL_PLAINTEXT"
	SecurityProtocolSaslSsl       = "SASL_SSL"
	SaslMechanismOAuthBearer      = "OAUTHBEARER"
	SaslMechanismPlain            = "PLAIN"
)

// Serialize renders the properties as a flat sorted key=value bag. Empty
// fields are omitted.
func (p AdminConnectionProperties) Serialize() string {
	bag := structs.Map(&p)

	keys := make([]string, 0, len(bag))
	for key, value := range bag {
		if value.(string) != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(bag[key].(string))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ParseAdminProperties parses a serialized property bag. Lines starting with
// '#' or '!' are comments (java properties files carry a timestamp comment).
func ParseAdminProperties(serialized string) (AdminConnectionProperties, error) {
	bag := map[string]string{}

	scanner := bufio.NewScanner(strings.NewReader(serialized))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return AdminConnectionProperties{}, fmt.Errorf("invalid admin property line: %s", key)
		}
		// java's Properties.store escapes ':' and '=' in keys
		key = strings.ReplaceAll(key, "\\", "")
		bag[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	props := AdminConnectionProperties{}
	fields := structs.Fields(&props)
	for _, field := range fields {
		if value, ok := bag[field.Tag("structs")]; ok {
			if err := field.Set(value); err != nil {
				return AdminConnectionProperties{}, err
			}
		}
	}

	if props.BootstrapServers == "" {
		return AdminConnectionProperties{}, fmt.Errorf("admin properties missing bootstrap.servers")
	}
	return props, nil
}

// BootstrapServerList splits the comma separated bootstrap server string.
func (p AdminConnectionProperties) BootstrapServerList() []string {
	parts := strings.Split(p.BootstrapServers, ",")
	servers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			servers = append(servers, trimmed)
		}
	}
	return servers
}
