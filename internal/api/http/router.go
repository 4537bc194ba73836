package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rentfolio-backend/internal/security"
)

// NewRouter assembles the ledger core's HTTP surface. The provider webhook
// is signature-authenticated and stays outside the bearer-token middleware.
func NewRouter(
	tokens security.TokenManager,
	withdrawals *WithdrawalHandler,
	payments *PaymentHandler,
	webhooks *WebhookHandler,
) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/webhooks/payments",
		MetricsMiddleware("/api/v1/webhooks/payments", webhooks.HandleProviderCallback)).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))

	api.HandleFunc("/withdrawals", MetricsMiddleware("/api/v1/withdrawals", withdrawals.Create)).Methods(http.MethodPost)
	api.HandleFunc("/withdrawals", MetricsMiddleware("/api/v1/withdrawals", withdrawals.List)).Methods(http.MethodGet)
	api.HandleFunc("/withdrawals/{id}/status", MetricsMiddleware("/api/v1/withdrawals/{id}/status", withdrawals.Transition)).Methods(http.MethodPost)
	api.HandleFunc("/balance", MetricsMiddleware("/api/v1/balance", withdrawals.Balance)).Methods(http.MethodGet)

	api.HandleFunc("/payments", MetricsMiddleware("/api/v1/payments", payments.Initiate)).Methods(http.MethodPost)
	api.HandleFunc("/payments/{id}", MetricsMiddleware("/api/v1/payments/{id}", payments.Get)).Methods(http.MethodGet)

	api.HandleFunc("/notifications", MetricsMiddleware("/api/v1/notifications", payments.ListNotifications)).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", MetricsMiddleware("/api/v1/notifications/{id}/read", payments.MarkNotificationRead)).Methods(http.MethodPost)

	return r
}
