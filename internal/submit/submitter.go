package submit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// DefaultSuccessURL is where the browser goes after an accepted order.
const DefaultSuccessURL = "/pedidos/pago_exitoso/"

var (
	// ErrEmptyCart is returned when there is nothing to order.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrSubmitInFlight is returned while the page is already submitting.
	ErrSubmitInFlight = errors.New("checkout submission already in progress")
)

// Draft is the checkout page state a submission is built from.
type Draft struct {
	Form   checkout.Form
	Option shipping.Option
}

// Pages guards submissions per session and serializes page mutations.
// BeginSubmit returns ErrSubmitInFlight while a previous submission has not
// been released with EndSubmit.
type Pages interface {
	BeginSubmit(ctx context.Context, sessionID string) (Draft, error)
	EndSubmit(sessionID string)
	Run(ctx context.Context, sessionID string, fn func(context.Context) error) error
}

// Sender delivers an order to the checkout backend.
type Sender interface {
	Send(ctx context.Context, order Order) (Confirmation, error)
}

// Request identifies the session submitting and the headers forwarded to the backend.
type Request struct {
	SessionID      string
	CSRFToken      string
	IdempotencyKey string
}

// Submitter orchestrates one checkout submission.
type Submitter struct {
	Pages      Pages
	Cart       *cart.Service
	Client     Sender
	SuccessURL string
	Logger     zerolog.Logger
}

// Submit validates the page state and posts the order. The cart is cleared
// only after the backend accepted the order; on any failure it is untouched
// and the page may submit again.
func (s *Submitter) Submit(ctx context.Context, req Request) (Confirmation, error) {
	start := time.Now()
	conf, err := s.submit(ctx, req)
	obs.ObserveCheckoutSubmission(resultLabel(err), obs.DurationMillis(time.Since(start)))
	return conf, err
}

func (s *Submitter) submit(ctx context.Context, req Request) (Confirmation, error) {
	draft, err := s.Pages.BeginSubmit(ctx, req.SessionID)
	if err != nil {
		return Confirmation{}, err
	}
	defer s.Pages.EndSubmit(req.SessionID)

	items, err := s.Cart.Get(ctx, req.SessionID)
	if err != nil {
		return Confirmation{}, err
	}
	if len(items) == 0 {
		return Confirmation{}, ErrEmptyCart
	}

	payload := BuildPayload(draft.Form, draft.Option, items)
	if err := payload.Validate(); err != nil {
		return Confirmation{}, err
	}

	conf, err := s.Client.Send(ctx, Order{
		Payload:        payload,
		CSRFToken:      req.CSRFToken,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return Confirmation{}, err
	}

	if err := s.Pages.Run(ctx, req.SessionID, func(ctx context.Context) error {
		return s.Cart.Clear(ctx, req.SessionID)
	}); err != nil {
		s.Logger.Error().Err(err).Str("session_id", req.SessionID).Str("order_id", conf.OrderID).Msg("clear cart after checkout")
	}

	conf.NextURL = s.SuccessURL
	if conf.NextURL == "" {
		conf.NextURL = DefaultSuccessURL
	}
	s.Logger.Info().
		Str("session_id", req.SessionID).
		Str("order_id", conf.OrderID).
		Str("tipo_transporte", string(payload.TipoTransporte)).
		Int("items", len(payload.Items)).
		Msg("checkout submitted")
	return conf, nil
}

func resultLabel(err error) string {
	var berr *BackendError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrSubmitInFlight):
		return "in_flight"
	case errors.Is(err, resilience.ErrOpenCircuit):
		return "circuit_open"
	case errors.Is(err, ErrBackendUnavailable):
		return "unavailable"
	case errors.As(err, &berr):
		return "rejected"
	case isValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
