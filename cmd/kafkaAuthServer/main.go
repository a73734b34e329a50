package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/i2-open/i2goKafkaAuth/config"
	"github.com/i2-open/i2goKafkaAuth/internal/aclManager"
	"github.com/i2-open/i2goKafkaAuth/internal/authUtil"
	"github.com/i2-open/i2goKafkaAuth/internal/authorizer"
	"github.com/i2-open/i2goKafkaAuth/internal/oidcClient"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore"
	"github.com/i2-open/i2goKafkaAuth/pkg/server"
)

func main() {
	cfg := config.GetEnvConfig()

	provider, err := corrStore.OpenProvider(cfg.DbUrl, cfg.DbName)
	if err != nil {
		log.Fatalf("Unable to open correlation store: %s", err.Error())
	}

	auth, err := authUtil.NewSelfSignedIssuer(cfg.TokenIssuer)
	if err != nil {
		log.Fatalf("Unable to initialize token issuer: %s", err.Error())
	}

	adminToken, err := auth.IssueToken([]string{authUtil.ScopeRoot}, nil)
	if err != nil {
		log.Fatalf("Unable to issue admin token: %s", err.Error())
	}
	log.Printf("Admin token: %s", adminToken)

	oidc := oidcClient.NewOpenIdConnectService(cfg.OidcTimeout)
	identity := authorizer.NewOpenIdIdentityProvider(oidc, provider)
	authz := authorizer.NewAuthorizer(identity, aclManager.NewKafkaAclManager(), provider)

	app := server.StartServer(cfg.ServerAddr, provider, authz, auth, cfg.BaseUrl)
	app.StartReconciler(cfg.ReconcileInterval, cfg.ReconcileAge)
	defer app.Shutdown()

	if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %s", err.Error())
	}
}
