package httpapi

import (
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", app.createOrderHandler)
	mux.HandleFunc("GET /orders", app.listOrdersHandler)
	mux.HandleFunc("GET /orders/{id}", app.getOrderHandler)
	mux.HandleFunc("GET /orders/aggregates", app.listAggregatesHandler)
	mux.HandleFunc("GET /orders/aggregates/pending", app.pendingAggregateHandler)
	mux.HandleFunc("GET /orders/high-value", app.listHighValueHandler)
	mux.HandleFunc("GET /deadletters", app.listDeadLettersHandler)
	mux.HandleFunc("DELETE /deadletters", app.clearDeadLettersHandler)
	mux.HandleFunc("POST /deadletters/clear", app.clearDeadLettersHandler)
	mux.HandleFunc("GET /notifications/orders", app.listNotificationsHandler)
	mux.HandleFunc("DELETE /notifications/orders", app.clearNotificationsHandler)
	mux.HandleFunc("GET /healthz", app.healthHandler)
	mux.HandleFunc("GET /debug/metrics", app.metricsHandler)
	return WithRequestID(WithLogging(app.logger, mux))
}
