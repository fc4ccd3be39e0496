package checkout

import (
	"context"
	"net/http"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/session"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Pages gives serialized access to the checkout controller of a session.
type Pages interface {
	WithCheckout(ctx context.Context, sessionID string, fn func(ctx context.Context, c *Controller) error) error
}

// Handler exposes the checkout wizard.
type Handler struct {
	Pages Pages
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, fn func(c *Controller) (View, error)) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	var view View
	err := h.Pages.WithCheckout(r.Context(), sid, func(_ context.Context, c *Controller) error {
		var err error
		view, err = fn(c)
		return err
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// Get handles GET /api/v1/checkout.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *Controller) (View, error) { return c.View(), nil })
}

// Next handles POST /api/v1/checkout/next.
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *Controller) (View, error) { return c.Next(), nil })
}

// Prev handles POST /api/v1/checkout/prev.
func (h *Handler) Prev(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(c *Controller) (View, error) { return c.Prev(), nil })
}

type formPayload struct {
	Form
	TipoEnvio string `json:"tipo_envio"`
}

// UpdateForm handles PUT /api/v1/checkout/form. An optional tipo_envio also
// selects the shipping option.
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var payload formPayload
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	opt, hasOpt, err := parseOption(payload.TipoEnvio, true)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.serve(w, r, func(c *Controller) (View, error) {
		view := c.UpdateForm(payload.Form)
		if hasOpt {
			view = c.SelectShipping(opt)
		}
		return view, nil
	})
}

// SelectShipping handles PUT /api/v1/checkout/shipping with {"tipo_envio": "..."}.
func (h *Handler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TipoEnvio string `json:"tipo_envio"`
	}
	if !common.DecodeJSON(w, r, &payload) {
		return
	}
	opt, _, err := parseOption(payload.TipoEnvio, false)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.serve(w, r, func(c *Controller) (View, error) { return c.SelectShipping(opt), nil })
}

func parseOption(raw string, optional bool) (shipping.Option, bool, error) {
	if raw == "" && optional {
		return shipping.None, false, nil
	}
	opt, ok := shipping.Parse(raw)
	if !ok {
		return shipping.None, false, common.NewAppError("INVALID_SHIPPING", "unknown shipping option", http.StatusBadRequest, nil).
			WithDetails(map[string]any{"tipo_envio": raw})
	}
	return opt, true, nil
}
