package submit

import (
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/security"
	"github.com/noah-isme/toko-storefront/internal/session"
)

// EmptyCartMessage is shown when the buyer submits without items.
const EmptyCartMessage = "El carrito está vacío"

// Handler exposes the checkout submission.
type Handler struct {
	Submitter  *Submitter
	CSRFCookie string
}

// Submit handles POST /api/v1/checkout/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.ID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "NO_SESSION", "session required", nil)
		return
	}
	conf, err := h.Submitter.Submit(r.Context(), Request{
		SessionID:      sid,
		CSRFToken:      security.TokenFromRequest(r, h.CSRFCookie),
		IdempotencyKey: strings.TrimSpace(r.Header.Get(common.IdempotencyHeader)),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, conf)
}

// failure is the error panel rendered next to a re-enabled submit control.
type failure struct {
	Detail        string `json:"detail,omitempty"`
	BackendStatus int    `json:"backend_status,omitempty"`
	SubmitEnabled bool   `json:"submit_enabled"`
}

func writeError(w http.ResponseWriter, err error) {
	var (
		berr   *BackendError
		appErr *common.AppError
	)
	switch {
	case errors.Is(err, ErrSubmitInFlight):
		common.JSONError(w, http.StatusConflict, "SUBMIT_IN_FLIGHT", "ya se está enviando el pedido", failure{SubmitEnabled: false})
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", EmptyCartMessage, failure{SubmitEnabled: true})
	case errors.As(err, &appErr):
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
	case errors.Is(err, resilience.ErrOpenCircuit):
		common.JSONError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "El servicio de pedidos no está disponible", failure{SubmitEnabled: true})
	case errors.As(err, &berr):
		status := http.StatusBadGateway
		if berr.Status >= 400 && berr.Status < 500 {
			status = http.StatusUnprocessableEntity
			if berr.Status == http.StatusBadRequest {
				status = http.StatusBadRequest
			}
		}
		code := berr.Code
		if code == "" {
			code = "BACKEND_ERROR"
		}
		message := berr.Message
		if message == "" {
			message = "No se pudo crear el pedido"
		}
		common.JSONError(w, status, code, message, failure{Detail: berr.Detail, BackendStatus: berr.Status, SubmitEnabled: true})
	case errors.Is(err, ErrBackendUnavailable):
		common.JSONError(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "No se pudo contactar al servicio de pedidos", failure{SubmitEnabled: true})
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", failure{SubmitEnabled: true})
	}
}

func isValidation(err error) bool {
	var appErr *common.AppError
	return errors.As(err, &appErr) && appErr.Code == "MISSING_DATA"
}
