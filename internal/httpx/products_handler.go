package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/inventory"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
)

type ProductsHandler struct {
	Ledger inventory.Ledger
}

type RestockReq struct {
	Qty int `json:"qty"`
}

func (h *ProductsHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Post("/products/{id}/restock", h.restock)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Ledger.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// restock hanya untuk supplier; menambah stok fisik, reserved tidak disentuh.
func (h *ProductsHandler) restock(w http.ResponseWriter, r *http.Request) {
	actorID, role := actor(r)
	if actorID == "" || role != orders.RoleSupplier {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}
	var req RestockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Qty < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qty must be >= 1"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	productID := chi.URLParam(r, "id")
	if err := h.Ledger.Restock(ctx, productID, req.Qty); err != nil {
		writeErr(w, err)
		return
	}
	p, err := h.Ledger.Get(ctx, productID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
