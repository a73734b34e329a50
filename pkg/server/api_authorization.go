package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/i2-open/i2goKafkaAuth/internal/authUtil"
	"github.com/i2-open/i2goKafkaAuth/internal/model"
)

// CreateAuthorization provisions broker access for a transfer and returns
// the endpoint data reference. The body is the Kafka source address.
func (app *AuthApplication) CreateAuthorization(w http.ResponseWriter, r *http.Request) {
	authCtx, status := app.Auth.ValidateAuthorization(r, []string{authUtil.ScopeProvision, authUtil.ScopeAdmin})
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	transferId := authCtx.TransferId

	var address model.KafkaSourceAddress
	if err := json.NewDecoder(r.Body).Decode(&address); err != nil {
		serverLog.Printf("Transfer [%s]: invalid source address: %s", transferId, err.Error())
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if address.Topic == "" || address.BootstrapServers == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	edr, err := app.Authorizer.Provision(r.Context(), transferId, address)
	if err != nil {
		serverLog.Printf("Transfer [%s]: provisioning failed: %s", transferId, err.Error())
		app.Stats.ProvisionErrors.Inc()
		w.WriteHeader(mapErrorStatus(err))
		return
	}

	app.Stats.Provisions.Inc()
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(edr)
	_, _ = w.Write(resp)
}

// GetAuthorization reports the correlation state for a transfer. Admin only;
// the admin connection properties are never included in the response.
func (app *AuthApplication) GetAuthorization(w http.ResponseWriter, r *http.Request) {
	_, status := app.Auth.ValidateAuthorization(r, []string{authUtil.ScopeAdmin})
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	transferId := mux.Vars(r)["transferId"]
	record, err := app.Provider.GetCorrelation(transferId)
	if err != nil {
		w.WriteHeader(mapErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(record)
	_, _ = w.Write(resp)
}

// RevokeAuthorization revokes broker access for a transfer. An unknown
// transfer id yields 404, which callers treat as already revoked.
func (app *AuthApplication) RevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	authCtx, status := app.Auth.ValidateAuthorization(r, []string{authUtil.ScopeProvision, authUtil.ScopeAdmin})
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	transferId := authCtx.TransferId

	if err := app.Authorizer.Revoke(r.Context(), transferId); err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			serverLog.Printf("Transfer [%s]: revocation failed: %s", transferId, err.Error())
			app.Stats.RevokeErrors.Inc()
		}
		w.WriteHeader(mapErrorStatus(err))
		return
	}

	app.Stats.Revocations.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// TriggerReconcile runs a pending-correlation sweep on demand. The same age
// cutoff as the background loop applies: a pending record younger than the
// cutoff belongs to a provision that may still be in flight.
func (app *AuthApplication) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	_, status := app.Auth.ValidateAuthorization(r, []string{authUtil.ScopeAdmin})
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	swept, err := app.Authorizer.Reconcile(r.Context(), time.Now().Add(-app.reconcileAge))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	resp, _ := json.Marshal(map[string]int{"swept": swept})
	_, _ = w.Write(resp)
}

func (app *AuthApplication) GetHealth(w http.ResponseWriter, _ *http.Request) {
	if !app.HealthCheck() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func mapErrorStatus(err error) int {
	var protocolErr *model.ProtocolError
	var decodeErr *model.DecodeError
	var unexpectedErr *model.UnexpectedError

	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &protocolErr), errors.As(err, &decodeErr), errors.As(err, &unexpectedErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
