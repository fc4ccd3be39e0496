package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-storefront/internal/resilience"
	"github.com/noah-isme/toko-storefront/internal/security"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 64 << 10
)

// ErrBackendUnavailable wraps transport failures talking to the checkout backend.
var ErrBackendUnavailable = errors.New("checkout backend unavailable")

// Order is one outbound submission.
type Order struct {
	Payload        Payload
	CSRFToken      string
	IdempotencyKey string
}

// Confirmation is what the backend reports for an accepted order.
type Confirmation struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status,omitempty"`
	Total         string `json:"total,omitempty"`
	ReservationID string `json:"reservationId,omitempty"`
	TrackingID    string `json:"trackingId,omitempty"`
	NextURL       string `json:"nextUrl"`
}

// BackendError is a non-2xx answer from the checkout backend.
type BackendError struct {
	Status  int
	Message string
	Detail  string
	Code    string
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("checkout backend status %d: %s: %s", e.Status, msg, e.Detail)
	}
	return fmt.Sprintf("checkout backend status %d: %s", e.Status, msg)
}

// Client posts orders to the checkout backend.
type Client struct {
	HTTP       resilience.HTTPClient
	URL        string
	CSRFHeader string
	Logger     zerolog.Logger
}

// NewHTTPClient builds the traced, breaker-protected transport used by Client.
func NewHTTPClient(timeout time.Duration, breaker *resilience.Breaker) resilience.HTTPClient {
	return resilience.HTTPClient{
		Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker: breaker,
		Timeout: timeout,
	}
}

// Send posts the order once. Transport failures are wrapped in
// ErrBackendUnavailable, non-2xx answers become a *BackendError and an open
// breaker surfaces resilience.ErrOpenCircuit untouched.
func (c *Client) Send(ctx context.Context, order Order) (Confirmation, error) {
	if c == nil || strings.TrimSpace(c.URL) == "" {
		return Confirmation{}, errors.New("checkout client not configured")
	}
	body, err := json.Marshal(order.Payload)
	if err != nil {
		return Confirmation{}, fmt.Errorf("encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return Confirmation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(idempotencyHeader, ensureIdempotencyKey(order.IdempotencyKey))
	if order.CSRFToken != "" {
		req.Header.Set(c.csrfHeader(), order.CSRFToken)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		if errors.Is(err, resilience.ErrOpenCircuit) {
			return Confirmation{}, err
		}
		c.Logger.Warn().Err(err).Str("url", c.URL).Msg("checkout backend request failed")
		return Confirmation{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		berr := decodeBackendError(resp)
		c.Logger.Warn().Int("status", berr.Status).Str("code", berr.Code).Msg("checkout backend rejected order")
		return Confirmation{}, berr
	}

	var payload confirmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
			return Confirmation{}, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
		}
		// The order was accepted; an unreadable body only loses the identifiers.
		c.Logger.Warn().Err(err).Msg("checkout backend confirmation unreadable")
	}
	return payload.toConfirmation(), nil
}

func (c *Client) csrfHeader() string {
	if strings.TrimSpace(c.CSRFHeader) != "" {
		return c.CSRFHeader
	}
	return security.DefaultCSRFHeader
}

func ensureIdempotencyKey(key string) string {
	if k := strings.TrimSpace(key); k != "" {
		return k
	}
	return uuid.NewString()
}

// flexString accepts JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type confirmPayload struct {
	Message  string     `json:"message"`
	PedidoID flexString `json:"pedido_id"`
	Pedido   *struct {
		ID     flexString `json:"id"`
		Estado string     `json:"estado"`
		Total  flexString `json:"total"`
	} `json:"pedido"`
	Reserva *struct {
		ID            flexString `json:"id"`
		ReservationID flexString `json:"reservationId"`
	} `json:"reserva"`
	Envio *struct {
		ID         flexString `json:"id"`
		TrackingID flexString `json:"trackingId"`
	} `json:"envio"`
}

func (p confirmPayload) toConfirmation() Confirmation {
	out := Confirmation{OrderID: string(p.PedidoID)}
	if p.Pedido != nil {
		if p.Pedido.ID != "" {
			out.OrderID = string(p.Pedido.ID)
		}
		out.Status = strings.TrimSpace(p.Pedido.Estado)
		out.Total = string(p.Pedido.Total)
	}
	if p.Reserva != nil {
		out.ReservationID = firstNonEmpty(string(p.Reserva.ID), string(p.Reserva.ReservationID))
	}
	if p.Envio != nil {
		out.TrackingID = firstNonEmpty(string(p.Envio.ID), string(p.Envio.TrackingID))
	}
	return out
}

type errorPayload struct {
	Error  string          `json:"error"`
	Code   string          `json:"code"`
	Detail json.RawMessage `json:"detail"`
}

func decodeBackendError(resp *http.Response) *BackendError {
	out := &BackendError{Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return out
	}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		out.Detail = strings.TrimSpace(string(raw))
		return out
	}
	out.Message = strings.TrimSpace(payload.Error)
	out.Code = strings.TrimSpace(payload.Code)
	out.Detail = detailText(payload.Detail)
	return out
}

func detailText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(trimmed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
