package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusHandler struct {
	App             *AuthApplication
	Provisions      prometheus.Counter
	ProvisionErrors prometheus.Counter
	Revocations     prometheus.Counter
	RevokeErrors    prometheus.Counter
	PendingCnt      prometheus.GaugeFunc
}

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "kafkaAuth_http_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path"})
)

func PrometheusHttpMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		path, _ := route.GetPathTemplate()
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(path))
		next.ServeHTTP(w, r)
		timer.ObserveDuration()
	})
}

func (app *AuthApplication) InitializePrometheus() {
	handler := PrometheusHandler{
		App: app,
		Provisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kafkaAuth",
			Subsystem: "authorizer",
			Name:      "provisions",
			Help:      "Successful transfer provisionings",
		}),
		ProvisionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kafkaAuth",
			Subsystem: "authorizer",
			Name:      "provision_errors",
			Help:      "Failed transfer provisionings",
		}),
		Revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kafkaAuth",
			Subsystem: "authorizer",
			Name:      "revocations",
			Help:      "Successful transfer revocations",
		}),
		RevokeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kafkaAuth",
			Subsystem: "authorizer",
			Name:      "revoke_errors",
			Help:      "Failed transfer revocations",
		}),
		PendingCnt: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "kafkaAuth",
			Subsystem: "authorizer",
			Name:      "pending_correlations",
			Help:      "Stale pending correlations awaiting a reconcile sweep",
		}, func() float64 {
			return app.Authorizer.PendingCount(time.Now().Add(-app.reconcileAge))
		}),
	}

	// Registration errors (duplicate collectors when several applications
	// share a process, e.g. in tests) are not fatal.
	for _, collector := range []prometheus.Collector{
		handler.Provisions, handler.ProvisionErrors,
		handler.Revocations, handler.RevokeErrors, handler.PendingCnt,
	} {
		_ = prometheus.Register(collector)
	}

	app.Stats = &handler
}
