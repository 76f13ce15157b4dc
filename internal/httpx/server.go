package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/inventory"
	"github.com/ariefcatur/b2b-orders.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr memetakan taxonomy error domain ke status HTTP; detail internal
// tidak pernah bocor ke response.
func writeErr(w http.ResponseWriter, err error) {
	var ins *inventory.InsufficientStockError
	switch {
	case errors.As(err, &ins):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient_stock",
			"product_id": ins.ProductID,
			"available":  ins.Available,
			"requested":  ins.Requested,
		})
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, inventory.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid_transition"})
	case errors.Is(err, orders.ErrNoteRequired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "note_required"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// Identitas actor datang dari layer auth di depan (out of scope di sini);
// kita cuma baca hasilnya dari header.
func actor(r *http.Request) (string, orders.Role) {
	return r.Header.Get("X-User-Id"), orders.Role(r.Header.Get("X-User-Role"))
}
