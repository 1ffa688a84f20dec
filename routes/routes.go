// routes/routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"assetverse/handlers"
	"assetverse/identity"
	"assetverse/middleware"
)

// New builds the router. Health, metrics and the payment webhook are public;
// everything under /api carries a verified bearer token.
func New(verifier identity.Verifier, allowedOrigin string, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(allowedOrigin))
	r.Use(middleware.Metrics)

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/webhooks/payment", handlers.PaymentWebhook).Methods(http.MethodPost)
	r.HandleFunc("/ws", handlers.ServeWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(verifier, logger))

	// Accounts and profiles.
	api.HandleFunc("/users", handlers.UpsertHRUser).Methods(http.MethodPost)
	api.HandleFunc("/users/employee", handlers.UpsertEmployeeUser).Methods(http.MethodPost)
	api.HandleFunc("/users/role", handlers.GetUserRole).Methods(http.MethodGet)
	api.HandleFunc("/users/me", handlers.UpdateProfile).Methods(http.MethodPatch)
	api.HandleFunc("/profile", handlers.GetProfile).Methods(http.MethodGet)

	// Inventory.
	api.HandleFunc("/assets", handlers.CreateAsset).Methods(http.MethodPost)
	api.HandleFunc("/assets", handlers.ListAssets).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}", handlers.DeleteAsset).Methods(http.MethodDelete)

	// Requests.
	api.HandleFunc("/requests", handlers.CreateRequest).Methods(http.MethodPost)
	api.HandleFunc("/requests/all", handlers.ListAllRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/my", handlers.ListMyRequests).Methods(http.MethodGet)
	api.HandleFunc("/requests/{id}/approve", handlers.ApproveRequest).Methods(http.MethodPatch)
	api.HandleFunc("/requests/{id}/reject", handlers.RejectRequest).Methods(http.MethodPatch)

	// Assignments.
	api.HandleFunc("/assigned-assets/my", handlers.ListMyAssignedAssets).Methods(http.MethodGet)
	api.HandleFunc("/assigned-assets/{id}/return", handlers.ReturnAssignedAsset).Methods(http.MethodPatch)

	// Team management.
	api.HandleFunc("/employees/my", handlers.ListMyEmployees).Methods(http.MethodGet)
	api.HandleFunc("/employees/{email}/remove", handlers.RemoveEmployee).Methods(http.MethodPatch)

	// Billing.
	api.HandleFunc("/packages", handlers.ListPackages).Methods(http.MethodGet)
	api.HandleFunc("/create-checkout-session", handlers.CreateCheckoutSession).Methods(http.MethodPost)
	api.HandleFunc("/payment-success", handlers.PaymentSuccess).Methods(http.MethodPost)
	api.HandleFunc("/payments", handlers.ListPayments).Methods(http.MethodGet)

	return r
}
