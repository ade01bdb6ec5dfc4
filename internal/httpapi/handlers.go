package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/randalmurphal/orderflow/pkg/orderflow/event"
	"github.com/randalmurphal/orderflow/pkg/orderflow/store"
)

// InvalidRequestPrefix starts the reason of a dead-lettered order request.
const InvalidRequestPrefix = "Invalid order request: "

// DefaultOrderStatus is applied when a request carries no status.
const DefaultOrderStatus = event.StatusCreated

// OrderItemRequest is one requested order line.
type OrderItemRequest struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Customer        *store.Customer    `json:"customer"`
	Status          string             `json:"status,omitempty"`
	PaymentMethod   string             `json:"payment_method,omitempty"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
	Items           []OrderItemRequest `json:"items"`
	TestZeroTotal   bool               `json:"test_zero_total,omitempty"`
}

type createOrderResponse struct {
	ID            int64           `json:"id"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	CustomerEmail string          `json:"customer_email"`
	CreatedAt     time.Time       `json:"created_at"`
	RequestID     string          `json:"request_id"`
}

// validateItems checks every order line and sums quantities per SKU.
func validateItems(items []OrderItemRequest) (map[string]int, error) {
	want := make(map[string]int, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.SKU) == "" {
			return nil, fmt.Errorf("item %d: sku is required", i)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be > 0", i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item %d: unit_price must be >= 0", i)
		}
		want[it.SKU] += it.Quantity
	}
	return want, nil
}

func (a *App) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var req CreateOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Customer == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "customer is required")
		return
	}
	if len(req.Items) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "order must have at least one item")
		return
	}

	ctx := r.Context()
	want, err := validateItems(req.Items)
	if err != nil {
		a.pipeline.ReportDeadLetter(ctx, &req, InvalidRequestPrefix+err.Error())
		WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if short, ok := a.inventory.Reserve(want); !ok {
		short.CustomerEmail = req.Customer.Email
		a.pipeline.ReportDeadLetter(ctx, short, InvalidRequestPrefix+short.Error())
		WriteJSONError(w, http.StatusBadRequest, "out_of_stock", short.Error())
		return
	}

	order := newOrder(&req, a.now().UTC())
	if err := a.store.Save(ctx, order); err != nil {
		a.inventory.Release(want)
		WriteJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	a.pipeline.Publish(ctx, order)

	resp := createOrderResponse{
		ID:            order.ID,
		Status:        order.Status,
		Total:         order.Total,
		CustomerEmail: order.CustomerEmail(),
		CreatedAt:     order.OrderDate,
		RequestID:     RequestIDFromContext(ctx),
	}
	writeJSON(w, http.StatusCreated, resp)
	if a.logger != nil {
		a.logger.Info("order created",
			slog.Int64("order_id", resp.ID),
			slog.String("customer_email", resp.CustomerEmail),
			slog.String("total", resp.Total.StringFixed(2)),
			slog.String("request_id", resp.RequestID),
		)
	}
}

func newOrder(req *CreateOrderRequest, now time.Time) *store.Order {
	status := req.Status
	if status == "" {
		status = DefaultOrderStatus
	}
	cust := *req.Customer
	order := &store.Order{
		Customer:        &cust,
		Status:          status,
		OrderDate:       now,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		Items:           make([]store.Item, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		order.Items = append(order.Items, store.Item{SKU: it.SKU, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	order.Total = order.ItemsTotal()
	if req.TestZeroTotal {
		order.Total = decimal.Zero
	}
	return order
}

func (a *App) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var preds []store.Predicate
	if email := r.URL.Query().Get("email"); email != "" {
		preds = append(preds, store.ByCustomerEmail(email))
	}
	if status := r.URL.Query().Get("status"); status != "" {
		preds = append(preds, store.ByStatus(status))
	}
	orders, err := a.store.Query(r.Context(), allOf(preds))
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if orders == nil {
		orders = []*store.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func allOf(preds []store.Predicate) store.Predicate {
	if len(preds) == 0 {
		return nil
	}
	return func(o *store.Order) bool {
		for _, p := range preds {
			if !p(o) {
				return false
			}
		}
		return true
	}
}

func (a *App) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "invalid_id", r.PathValue("id"))
		return
	}
	order, err := a.store.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err != nil {
		WriteJSONError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *App) listAggregatesHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(a.pipeline.RecentAggregates()))
}

func (a *App) pendingAggregateHandler(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "email is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer_email": email,
		"pending":        a.pipeline.PendingAggregate(email),
		"batch_size":     a.pipeline.Settings().BatchSize,
	})
}

func (a *App) listHighValueHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(a.pipeline.FlaggedHighValue()))
}

func (a *App) listDeadLettersHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(a.pipeline.DeadLetters()))
}

func (a *App) clearDeadLettersHandler(w http.ResponseWriter, _ *http.Request) {
	a.pipeline.ClearDeadLetters()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) listNotificationsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(a.pipeline.RecentNotifications()))
}

func (a *App) clearNotificationsHandler(w http.ResponseWriter, _ *http.Request) {
	a.pipeline.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) healthHandler(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if a.closing.Load() {
		status = "shutting_down"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	m := map[string]any{
		"uptime_sec":         a.now().Sub(a.started).Seconds(),
		"dead_letters":       len(a.pipeline.DeadLetters()),
		"flagged_high_value": len(a.pipeline.FlaggedHighValue()),
		"standard_handled":   a.pipeline.StandardHandled(),
	}
	if a.metrics != nil {
		snap, err := snapshotMetrics(r.Context(), a.metrics)
		if err != nil {
			WriteJSONError(w, http.StatusInternalServerError, "metrics_error", err.Error())
			return
		}
		m["otel"] = snap
	}
	writeJSON(w, http.StatusOK, m)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
