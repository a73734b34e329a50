package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *AuthApplication) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(PrometheusHttpMiddleware)

	router.HandleFunc("/authorizations/{transferId}", app.CreateAuthorization).Methods(http.MethodPost)
	router.HandleFunc("/authorizations/{transferId}", app.GetAuthorization).Methods(http.MethodGet)
	router.HandleFunc("/authorizations/{transferId}", app.RevokeAuthorization).Methods(http.MethodDelete)
	router.HandleFunc("/reconcile", app.TriggerReconcile).Methods(http.MethodPost)
	router.HandleFunc("/health", app.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}
