package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/session"
)

// ErrUnknownProduct is returned by a ProductLookup for ids it cannot resolve.
var ErrUnknownProduct = errors.New("unknown product")

// ProductLookup resolves the line template for a product id.
type ProductLookup interface {
	LineFor(id string) (Item, error)
}

// Runner serializes work for one session against the live page state.
type Runner interface {
	Run(ctx context.Context, sessionID string, fn func(context.Context) error) error
}

// Handler exposes the cart mutations used by the storefront pages.
type Handler struct {
	Svc      *Service
	Products ProductLookup
	Pages    Runner
}

func (h *Handler) run(r *http.Request, sessionID string, fn func(context.Context) error) error {
	if h.Pages == nil {
		return fn(r.Context())
	}
	return h.Pages.Run(r.Context(), sessionID, fn)
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	c, err := h.Svc.Get(r.Context(), sid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, Updated{Carrito: c})
}

// SetItem handles PUT /api/v1/cart/items/{id} with {"cantidad": n}.
func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	var payload struct {
		Cantidad *int `json:"cantidad"`
	}
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	if payload.Cantidad == nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cantidad is required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	item := Item{ID: id}
	if h.Products != nil {
		line, err := h.Products.LineFor(id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		item = line
	}
	var out Cart
	err := h.run(r, sid, func(ctx context.Context) error {
		var err error
		out, err = h.Svc.SetQuantity(ctx, sid, item, *payload.Cantidad)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, Updated{Carrito: out})
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	var out Cart
	err := h.run(r, sid, func(ctx context.Context) error {
		var err error
		out, err = h.Svc.Remove(ctx, sid, id)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, Updated{Carrito: out})
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	err := h.run(r, sid, func(ctx context.Context) error {
		return h.Svc.Clear(ctx, sid)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to update cart", nil)
	}
}
