package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"citycar-backend/internal/security"
)

// NewRouter wires all routes. The webhook endpoint skips the auth middleware;
// its signature verification is the authentication.
func NewRouter(
	tokens security.TokenManager,
	leaseHandler *LeaseHandler,
	carHandler *CarHandler,
	webhookHandler *WebhookHandler,
) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Unauthenticated gateway callback.
	r.HandleFunc("/api/v1/payments/webhook", webhookHandler.HandleEvent).Methods("POST")

	// Public catalog.
	r.HandleFunc("/api/v1/cars", carHandler.ListCars).Methods("GET")
	r.HandleFunc("/api/v1/cars/{id}", carHandler.GetCar).Methods("GET")

	// Authenticated lease lifecycle.
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(Authenticate(tokens))

	api.HandleFunc("/leases", leaseHandler.CreateLease).Methods("POST")
	api.HandleFunc("/leases", leaseHandler.ListMyLeases).Methods("GET")
	api.HandleFunc("/leases/{id}", leaseHandler.GetLease).Methods("GET")
	api.HandleFunc("/leases/{id}/extend", leaseHandler.ExtendLease).Methods("POST")
	api.HandleFunc("/leases/{id}/return", leaseHandler.ReturnCar).Methods("POST")
	api.HandleFunc("/payments/history", leaseHandler.PaymentHistory).Methods("GET")

	// Admin fleet management and activity trail.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(RequireAdmin)
	admin.HandleFunc("/cars", carHandler.CreateCar).Methods("POST")
	admin.HandleFunc("/cars/{id}", carHandler.UpdateCar).Methods("PUT")
	admin.HandleFunc("/activity", carHandler.ListActivity).Methods("GET")

	return r
}
