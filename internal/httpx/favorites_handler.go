package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/b2b-orders.git/internal/favorites"
	"github.com/go-chi/chi/v5"
)

type FavoritesHandler struct {
	Store *favorites.Store // nil = feature mati (mode dev tanpa redis)
}

func (h *FavoritesHandler) Register(r *chi.Mux) {
	r.Get("/favorites", h.list)
	r.Get("/favorites/{productID}", h.contains)
	r.Put("/favorites/{productID}", h.add)
	r.Delete("/favorites/{productID}", h.remove)
}

func (h *FavoritesHandler) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "favorites unavailable"})
		return "", false
	}
	actorID, _ := actor(r)
	if actorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing actor headers"})
		return "", false
	}
	return actorID, true
}

func (h *FavoritesHandler) list(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.ready(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ids, err := h.Store.List(ctx, clientID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"product_ids": ids})
}

func (h *FavoritesHandler) contains(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.ready(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	fav, err := h.Store.Contains(ctx, clientID, chi.URLParam(r, "productID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

func (h *FavoritesHandler) add(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.ready(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Add(ctx, clientID, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FavoritesHandler) remove(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.ready(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.Store.Remove(ctx, clientID, chi.URLParam(r, "productID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
