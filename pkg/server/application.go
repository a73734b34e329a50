package server

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/i2-open/i2goKafkaAuth/internal/authUtil"
	"github.com/i2-open/i2goKafkaAuth/internal/authorizer"
	"github.com/i2-open/i2goKafkaAuth/internal/providers/corrStore"
)

var serverLog = log.New(os.Stdout, "SERVER: ", log.Ldate|log.Ltime)

// defaultReconcileAge guards sweeps triggered before StartReconciler has
// applied the configured age. A pending record younger than this belongs to
// a provision that may still be in flight and must not be swept.
const defaultReconcileAge = time.Hour

// AuthApplication hosts the provisioning API: the HTTP surface the transfer
// lifecycle calls at start (provision) and termination (revoke), plus health,
// metrics, and the background reconciliation sweep.
type AuthApplication struct {
	Provider   corrStore.Provider
	Authorizer *authorizer.Authorizer
	Server     *http.Server
	Handler    http.Handler
	BaseUrl    *url.URL
	Auth       *authUtil.AuthIssuer
	Stats      *PrometheusHandler

	reconcileInterval time.Duration
	reconcileAge      time.Duration
	reconcileStop     chan struct{}
}

func (app *AuthApplication) Name() string {
	if app.Provider != nil {
		return app.Provider.Name()
	}
	return "kafkaAuth"
}

func (app *AuthApplication) HealthCheck() bool {
	err := app.Provider.Check()
	if err != nil {
		serverLog.Println("Provider ping failed: " + err.Error())
		return false
	}
	return true
}

func NewApplication(provider corrStore.Provider, authz *authorizer.Authorizer, auth *authUtil.AuthIssuer, baseUrlString string) *AuthApplication {
	app := &AuthApplication{
		Provider:      provider,
		Authorizer:    authz,
		Auth:          auth,
		reconcileAge:  defaultReconcileAge,
		reconcileStop: make(chan struct{}),
	}

	app.Handler = NewRouter(app)

	if baseUrlString != "" {
		baseUrl, err := url.Parse(baseUrlString)
		if err != nil {
			serverLog.Printf("Invalid BaseUrl[%s]: %s", baseUrlString, err.Error())
		}
		app.BaseUrl = baseUrl
	}

	app.InitializePrometheus()
	return app
}

// StartServer creates a net/http server wrapping the application handler.
// Tests use NewApplication with an httptest.Server instead.
func StartServer(addr string, provider corrStore.Provider, authz *authorizer.Authorizer, auth *authUtil.AuthIssuer, baseUrlString string) *AuthApplication {
	app := NewApplication(provider, authz, auth, baseUrlString)
	server := http.Server{
		Addr:    addr,
		Handler: app.Handler,
	}
	app.Server = &server
	if app.BaseUrl == nil {
		baseUrl, _ := url.Parse("http://" + server.Addr + "/")
		app.BaseUrl = baseUrl
	}
	serverLog.Printf("ServerUrl[%s] listening on %s", provider.Name(), addr)
	return app
}

// StartReconciler runs the pending-correlation sweep until Shutdown.
func (app *AuthApplication) StartReconciler(interval time.Duration, age time.Duration) {
	app.reconcileInterval = interval
	app.reconcileAge = age
	go app.reconcileLoop()
}

func (app *AuthApplication) reconcileLoop() {
	ticker := time.NewTicker(app.reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.reconcileStop:
			return
		case <-ticker.C:
			swept, err := app.Authorizer.Reconcile(context.Background(), time.Now().Add(-app.reconcileAge))
			if err != nil {
				serverLog.Printf("Reconcile sweep failed: %s", err.Error())
				continue
			}
			if swept > 0 {
				serverLog.Printf("Reconcile sweep cleaned %d stale pending grant(s)", swept)
			}
		}
	}
}

func (app *AuthApplication) Shutdown() {
	name := app.Name()
	serverLog.Printf("[%s] Shutdown initiated...", name)

	close(app.reconcileStop)

	if app.Server != nil {
		_ = app.Server.Shutdown(context.Background())
	}

	_ = app.Provider.Close()
	serverLog.Printf("[%s] Shutdown complete.", name)
}
