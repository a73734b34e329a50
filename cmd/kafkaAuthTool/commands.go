package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

var httpClient = http.Client{Timeout: 60 * time.Second}

type ProvisionCmd struct {
	TransferId       string `arg:"" help:"The transfer process id to provision"`
	AddressFile      string `help:"Path to a JSON file holding the Kafka source address" type:"path"`
	Topic            string `help:"Topic name (ignored when --address-file is given)"`
	BootstrapServers string `help:"Broker bootstrap servers"`
	SecurityProtocol string `help:"Broker security protocol" default:"SASL_PLAINTEXT"`
	SaslMechanism    string `help:"Broker SASL mechanism" default:"OAUTHBEARER"`
	DiscoveryUrl     string `help:"OIDC discovery URL"`
	RegisterTokenKey string `help:"Secret store key of the registration token"`
	AdminPropsKey    string `help:"Secret store key of the admin connection properties"`
}

func (c *ProvisionCmd) Run(globals *Globals) error {
	var address model.KafkaSourceAddress
	if c.AddressFile != "" {
		raw, err := os.ReadFile(c.AddressFile)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &address); err != nil {
			return err
		}
	} else {
		address = model.KafkaSourceAddress{
			BootstrapServers: c.BootstrapServers,
			Topic:            c.Topic,
			SecurityProtocol: c.SecurityProtocol,
			SaslMechanism:    c.SaslMechanism,
			OidcDiscoveryUrl: c.DiscoveryUrl,
			RegisterTokenKey: c.RegisterTokenKey,
			AdminPropsKey:    c.AdminPropsKey,
		}
	}

	body, err := json.Marshal(address)
	if err != nil {
		return err
	}

	resp, err := execute(globals, http.MethodPost, "/authorizations/"+c.TransferId, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return printJson(resp)
}

type RevokeCmd struct {
	TransferId string `arg:"" help:"The transfer process id to revoke"`
}

func (c *RevokeCmd) Run(globals *Globals) error {
	resp, err := execute(globals, http.MethodDelete, "/authorizations/"+c.TransferId, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNoContent:
		fmt.Printf("Transfer %s revoked.\n", c.TransferId)
		return nil
	case http.StatusNotFound:
		fmt.Printf("Transfer %s has no active authorization (already revoked).\n", c.TransferId)
		return nil
	default:
		return fmt.Errorf("server responded with %s", resp.Status)
	}
}

type StatusCmd struct {
	TransferId string `arg:"" help:"The transfer process id to look up"`
}

func (c *StatusCmd) Run(globals *Globals) error {
	resp, err := execute(globals, http.MethodGet, "/authorizations/"+c.TransferId, nil)
	if err != nil {
		return err
	}
	return printJson(resp)
}

type ReconcileCmd struct{}

func (c *ReconcileCmd) Run(globals *Globals) error {
	resp, err := execute(globals, http.MethodPost, "/reconcile", nil)
	if err != nil {
		return err
	}
	return printJson(resp)
}

func execute(globals *Globals, method string, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, globals.Server+path, body)
	if err != nil {
		return nil, err
	}
	if globals.Token != "" {
		req.Header.Set("Authorization", "Bearer "+globals.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return httpClient.Do(req)
}

func printJson(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server responded with %s", resp.Status)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
