package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/ariefcatur/b2b-orders.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrdersHandler struct {
	Lifecycle *orders.Lifecycle
	Redis     *redis.Client // nil = tanpa cache/idempotency fast-path
	Log       *slog.Logger
}

type CreateOrderReq struct {
	ExternalID    string             `json:"external_id"`
	ClientID      string             `json:"client_id"`
	ClientEmail   string             `json:"client_email"`
	SupplierID    string             `json:"supplier_id"`
	SupplierEmail string             `json:"supplier_email"`
	Items         []orders.ItemInput `json:"items"`
}

type CreateOrderResp struct {
	Order      orders.Order `json:"order"`
	Idempotent bool         `json:"idempotent"`
}

type UpdateStatusReq struct {
	Status orders.Status `json:"status"`
	Note   string        `json:"note,omitempty"`
}

type UpdateItemsReq struct {
	Items []orders.ItemInput `json:"items"`
}

type AddNoteReq struct {
	Message string `json:"message"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Put("/orders/{id}/items", h.updateItems)
	r.Post("/orders/{id}/notes", h.addNote)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func validItems(items []orders.ItemInput) bool {
	if len(items) == 0 {
		return false
	}
	seen := map[string]bool{}
	for _, it := range items {
		if it.ProductID == "" || it.Qty < 1 || seen[it.ProductID] {
			return false
		}
		seen[it.ProductID] = true
	}
	return true
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ClientID == "" || req.SupplierID == "" || !validItems(req.Items) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis: external_id yang sama balikin
	// order yang sudah ada, tanpa reserve ulang.
	var idemKey string
	if h.Redis != nil && req.ExternalID != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemOrderCreate, req.ExternalID)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			if o, err := h.Lifecycle.Get(ctx, orderID); err == nil {
				writeJSON(w, http.StatusOK, CreateOrderResp{Order: o, Idempotent: true})
				return
			}
		}
	}

	o, err := h.Lifecycle.Create(ctx, orders.CreateInput{
		ClientID:      req.ClientID,
		SupplierID:    req.SupplierID,
		ClientEmail:   req.ClientEmail,
		SupplierEmail: req.SupplierEmail,
		Items:         req.Items,
		TraceID:       r.Header.Get("X-Request-Id"),
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	if h.Redis != nil {
		if idemKey != "" {
			_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
		}
		h.cacheOrder(ctx, o)
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{Order: o, Idempotent: false})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderCache, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) fallback store
	o, err := h.Lifecycle.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheOrder(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	if actorID == "" || (role != orders.RoleClient && role != orders.RoleSupplier) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing actor headers"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Lifecycle.ListForUser(ctx, actorID, role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	actorID, role := actor(r)
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if actorID == "" || !orders.ValidStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Lifecycle.UpdateStatus(ctx, orderID, actorID, role, req.Status, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheOrder(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateItems(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	actorID, _ := actor(r)
	var req UpdateItemsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if actorID == "" || !validItems(req.Items) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Lifecycle.UpdateItems(ctx, orderID, actorID, req.Items)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheOrder(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) addNote(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	actorID, role := actor(r)
	var req AddNoteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if actorID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Lifecycle.AddNote(ctx, orderID, actorID, role, req.Message)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		h.cacheOrder(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	actorID, role := actor(r)
	if actorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing actor headers"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Lifecycle.Delete(ctx, orderID, actorID, role); err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, orderID)).Err()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderCache, o.ID)
	if err := h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err(); err != nil {
		h.Log.Warn("order cache set failed", "order_id", o.ID, "err", err)
	}
}
