package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/domain"
	"github.com/Binweiwang/nestFunko/internal/service/order"
)

// OrdersHandler публикует операции жизненного цикла заказа по HTTP.
type OrdersHandler struct {
	Service order.Service
	Logger  *log.Entry
}

// Register навешивает маршруты заказов на роутер.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.cancelOrder)
	r.Get("/customers/{customerID}/orders", h.listCustomerOrders)
}

type lineReq struct {
	ItemID int64 `json:"item_id"`
	Qty    int32 `json:"qty"`
}

type createOrderReq struct {
	CustomerID       string          `json:"customer_id"`
	CustomerSnapshot json.RawMessage `json:"customer_snapshot,omitempty"`
	Lines            []lineReq       `json:"lines"`
}

type updateOrderReq struct {
	Lines []lineReq `json:"lines"`
}

type orderLineResp struct {
	ItemID     int64 `json:"item_id"`
	Qty        int32 `json:"qty"`
	PriceMinor int64 `json:"price_minor"`
	TotalMinor int64 `json:"total_minor"`
}

type orderResp struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customer_id"`
	CustomerSnapshot json.RawMessage `json:"customer_snapshot,omitempty"`
	Lines            []orderLineResp `json:"lines"`
	TotalMinor       int64           `json:"total_minor"`
	TotalItems       int32           `json:"total_items"`
	Version          int64           `json:"version"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

type pageResp struct {
	Orders     []orderResp `json:"orders"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count"`
}

func toOrderResp(o domain.Order) orderResp {
	lines := make([]orderLineResp, 0, len(o.Lines))
	for _, line := range o.Lines {
		lines = append(lines, orderLineResp{
			ItemID:     line.ItemID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
			TotalMinor: line.TotalMinor,
		})
	}
	return orderResp{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		CustomerSnapshot: o.CustomerSnapshot,
		Lines:            lines,
		TotalMinor:       o.TotalMinor,
		TotalItems:       o.TotalItems,
		Version:          o.Version,
		CreatedAt:        o.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:        o.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func toProposedLines(lines []lineReq) []domain.ProposedLine {
	proposed := make([]domain.ProposedLine, 0, len(lines))
	for _, line := range lines {
		proposed = append(proposed, domain.ProposedLine{ItemID: line.ItemID, Qty: line.Qty})
	}
	return proposed
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменную ошибку в HTTP-статус: клиентские ошибки — 4xx,
// всё остальное — 500 без деталей наружу.
func (h *OrdersHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case domain.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case domain.IsVersionConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("internal error")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	created, err := h.Service.Create(r.Context(), req.CustomerID, req.CustomerSnapshot, toProposedLines(req.Lines))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResp(created))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResp(found))
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	updated, err := h.Service.Update(r.Context(), id, toProposedLines(req.Lines))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResp(updated))
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.Cancel(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	params := domain.PageParams{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}

	page, err := h.Service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := pageResp{
		Orders:     make([]orderResp, 0, len(page.Orders)),
		Page:       page.Page,
		Limit:      page.Limit,
		TotalCount: page.TotalCount,
	}
	for _, o := range page.Orders {
		resp.Orders = append(resp.Orders, toOrderResp(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	orders, err := h.Service.ListByCustomer(r.Context(), customerID, queryInt(r, "limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResp(o))
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
