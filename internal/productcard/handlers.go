package productcard

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/session"
)

// Pages gives serialized access to the board of a session.
type Pages interface {
	WithBoard(ctx context.Context, sessionID string, fn func(ctx context.Context, b *Board) error) error
}

// Handler exposes the product card controls.
type Handler struct {
	Pages Pages
}

type boardResponse struct {
	Active string `json:"active,omitempty"`
	Card   *View  `json:"card,omitempty"`
	Cards  []View `json:"cards"`
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, b *Board) (*View, error)) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	var resp boardResponse
	err := h.Pages.WithBoard(r.Context(), sid, func(ctx context.Context, b *Board) error {
		card, err := fn(ctx, b)
		resp = boardResponse{Active: b.Active(), Card: card, Cards: b.Views()}
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, resp)
}

func (h *Handler) action(op func(b *Board, ctx context.Context, id string) (View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		h.serve(w, r, func(ctx context.Context, b *Board) (*View, error) {
			v, err := op(b, ctx, id)
			if err != nil {
				return nil, err
			}
			return &v, nil
		})
	}
}

// List handles GET /api/v1/cards.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(context.Context, *Board) (*View, error) { return nil, nil })
}

// Add handles POST /api/v1/cards/{id}/add.
func (h *Handler) Add() http.HandlerFunc { return h.action((*Board).Add) }

// Edit handles POST /api/v1/cards/{id}/edit.
func (h *Handler) Edit() http.HandlerFunc { return h.action((*Board).ClickQuantity) }

// Increment handles POST /api/v1/cards/{id}/increment.
func (h *Handler) Increment() http.HandlerFunc { return h.action((*Board).Increment) }

// Decrement handles POST /api/v1/cards/{id}/decrement.
func (h *Handler) Decrement() http.HandlerFunc { return h.action((*Board).Decrement) }

// ConfirmCard handles POST /api/v1/cards/{id}/confirm.
func (h *Handler) ConfirmCard() http.HandlerFunc { return h.action((*Board).ConfirmCard) }

// Input handles POST /api/v1/cards/{id}/input with {"value": "..."}.
func (h *Handler) Input(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Value string `json:"value"`
	}
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	h.action(func(b *Board, ctx context.Context, id string) (View, error) {
		return b.Input(ctx, id, payload.Value)
	})(w, r)
}

// Confirm handles POST /api/v1/cards/confirm, committing whichever card is editing.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(ctx context.Context, b *Board) (*View, error) {
		return nil, b.Confirm(ctx)
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownCard):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product card not found", nil)
	default:
		common.WriteError(w, err)
	}
}
