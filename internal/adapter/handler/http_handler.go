package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sagfo/storefront/internal/core/domain"
	"github.com/sagfo/storefront/internal/core/service"
	"github.com/sagfo/storefront/internal/port"
)

type HTTPHandler struct {
	sessions *service.CartSessions
	catalog  *service.CatalogService
	checkout *service.CheckoutService
	admin    *service.AdminService
	logger   *zap.Logger
	now      func() time.Time
	checks   map[string]func() string
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CartResponse struct {
	Items         domain.CartSnapshot   `json:"items"`
	TotalQuantity int                   `json:"totalQuantity"`
	Financials    domain.SplitBreakdown `json:"financials"`
}

type AddItemRequest struct {
	EquipmentID   string               `json:"equipmentId"`
	Customization domain.Customization `json:"customization"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type UpdateCustomizationRequest struct {
	Field domain.CustomizationField `json:"field"`
	Value string                    `json:"value"`
}

type AddPackageRequest struct {
	Items []service.PackageLine `json:"items"`
}

type StatusUpdateRequest struct {
	Status domain.OrderStatus `json:"status"`
	Note   string             `json:"note"`
}

type ManualQuoteRequest struct {
	CustomerName string                    `json:"customerName"`
	CustomerCity string                    `json:"customerCity"`
	Lines        []service.ManualQuoteLine `json:"lines"`
}

type ToggleQuoteItemRequest struct {
	Items       []domain.ManualQuoteItem `json:"items"`
	EquipmentID string                   `json:"equipmentId"`
}

type LinkResponse struct {
	URL string `json:"url"`
}

func NewHTTPHandler(sessions *service.CartSessions, catalog *service.CatalogService, checkout *service.CheckoutService, admin *service.AdminService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		sessions: sessions,
		catalog:  catalog,
		checkout: checkout,
		admin:    admin,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes wires every endpoint onto a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", h.ListCatalog)

		r.Route("/cart/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Get("/financials", h.GetFinancials)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{cartItemID}", h.UpdateQuantity)
			r.Delete("/items/{cartItemID}", h.RemoveItem)
			r.Put("/items/{cartItemID}/customization", h.UpdateCustomization)
			r.Post("/package", h.AddPackage)
		})

		r.Post("/checkout/{sessionID}", h.Checkout)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", h.Dashboard)
			r.Get("/debts", h.Debts)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Get("/orders/{orderID}/quote", h.OrderQuote)
			r.Get("/orders/{orderID}/summary", h.OrderSummary)
			r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
			r.Get("/orders/{orderID}/whatsapp/balance", h.BalanceReminder)
			r.Post("/quotes/manual", h.ManualQuote)
			r.Post("/quotes/manual/toggle", h.ToggleQuoteItem)
			r.Put("/prices", h.BulkUpdatePrices)
		})
	})
	return r
}

// ReportHealth adds a component to /health. A component reporting "open"
// (a tripped breaker) marks the service degraded.
func (h *HTTPHandler) ReportHealth(name string, state func() string) {
	if h.checks == nil {
		h.checks = make(map[string]func() string)
	}
	h.checks[name] = state
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	for name, state := range h.checks {
		s := state()
		body[name] = s
		if s == "open" {
			body["status"] = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *HTTPHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := cart.Clear(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.checkout.Quote(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EquipmentID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "equipmentId is required", Code: "invalid_request"})
		return
	}

	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	equipment, err := h.catalog.Equipment(r.Context(), req.EquipmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	line, err := cart.AddItem(r.Context(), equipment, req.Customization)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := cart.UpdateQuantity(r.Context(), chi.URLParam(r, "cartItemID"), req.Quantity); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := cart.RemoveItem(r.Context(), chi.URLParam(r, "cartItemID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) UpdateCustomization(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := cart.UpdateCustomization(r.Context(), chi.URLParam(r, "cartItemID"), req.Field, req.Value); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) AddPackage(w http.ResponseWriter, r *http.Request) {
	var req AddPackageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cart, ok := h.cart(w, r)
	if !ok {
		return
	}
	lines, err := h.catalog.ResolvePackage(r.Context(), req.Items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := cart.AddPackage(r.Context(), lines); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse(cart.Snapshot()))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}

	order, err := h.checkout.Submit(r.Context(), chi.URLParam(r, "sessionID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HTTPHandler) Debts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.admin.Debts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) OrderQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.admin.OrderQuote(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeQuote(w, r, quote)
}

func (h *HTTPHandler) OrderSummary(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, service.OrderSummary(order))
}

func (h *HTTPHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	change, err := h.admin.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderID"), req.Status, req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *HTTPHandler) BalanceReminder(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.Order(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	url := service.WhatsAppURL(order.CustomerInfo.Phone, service.PendingBalanceMessage(order))
	writeJSON(w, http.StatusOK, LinkResponse{URL: url})
}

func (h *HTTPHandler) ManualQuote(w http.ResponseWriter, r *http.Request) {
	var req ManualQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.admin.ManualQuote(r.Context(), req.Lines, req.CustomerName, req.CustomerCity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeQuote(w, r, quote)
}

func (h *HTTPHandler) ToggleQuoteItem(w http.ResponseWriter, r *http.Request) {
	var req ToggleQuoteItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items, err := h.admin.ToggleQuoteItem(r.Context(), req.Items, req.EquipmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *HTTPHandler) BulkUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var prices map[string]int64
	if !decodeJSON(w, r, &prices) {
		return
	}
	updated, err := h.admin.BulkUpdatePrices(r.Context(), prices)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (h *HTTPHandler) cart(w http.ResponseWriter, r *http.Request) (*service.CartStore, bool) {
	cart, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return cart, true
}

func (h *HTTPHandler) writeQuote(w http.ResponseWriter, r *http.Request, quote domain.Quote) {
	if r.URL.Query().Get("format") == "text" {
		writeText(w, http.StatusOK, service.RenderQuoteText(quote, h.now()))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Code: "validation_failed"})
	case errors.Is(err, service.ErrDuplicateRequest), errors.Is(err, port.ErrDuplicateOrder):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "duplicate request", Code: "duplicate_request"})
	case errors.Is(err, port.ErrOptimisticLock):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "the record was changed by someone else, reload and retry", Code: "conflict"})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrEquipmentNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, service.ErrMissingSession),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, domain.ErrUnknownCustomizationField),
		errors.Is(err, domain.ErrQuantityTooLarge),
		errors.Is(err, domain.ErrAmountOverflow):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
	case errors.Is(err, service.ErrCheckoutClosed), errors.Is(err, port.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "checkout unavailable", Code: "service_unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, ErrorResponse{Error: "request timed out", Code: "timeout"})
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "internal_error"})
	}
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func cartResponse(lines domain.CartSnapshot) CartResponse {
	return CartResponse{
		Items:         lines,
		TotalQuantity: lines.TotalQuantity(),
		Financials:    service.CalculateFinancials(lines),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "invalid_request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}
