package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerAddr        string        `envconfig:"KAUTH_ADDR" default:":8780"`
	BaseUrl           string        `envconfig:"KAUTH_BASE_URL"`
	DbUrl             string        `envconfig:"KAUTH_DB_URL"`
	DbName            string        `envconfig:"KAUTH_DBNAME"`
	TokenIssuer       string        `envconfig:"KAUTH_TOKEN_ISSUER" default:"DEFAULT"`
	OidcTimeout       time.Duration `envconfig:"KAUTH_OIDC_TIMEOUT" default:"30s"`
	ReconcileInterval time.Duration `envconfig:"KAUTH_RECONCILE_INTERVAL" default:"15m"`
	ReconcileAge      time.Duration `envconfig:"KAUTH_RECONCILE_AGE" default:"1h"`
}

func GetEnvConfig() Config {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		log.Println("Error occurred reading configuration: " + err.Error())
		return Config{}
	}
	return cfg
}
