// Package productcard drives the add/quantity controls of the storefront product cards.
package productcard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/obs"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// ErrUnknownCard is returned for ids that have no card on the page.
var ErrUnknownCard = errors.New("unknown product card")

// State is the per-card control state.
type State string

const (
	IdleNotInCart State = "idle_not_in_cart"
	IdleInCart    State = "idle_in_cart"
	Editing       State = "editing"
)

// Committer persists a confirmed quantity. Zero or less removes the line.
type Committer interface {
	SetQuantity(ctx context.Context, sessionID string, item cart.Item, qty int) (cart.Cart, error)
}

type card struct {
	line    cart.Item
	inCart  int
	editing bool
	input   string
}

func (c *card) state() State {
	switch {
	case c.editing:
		return Editing
	case c.inCart > 0:
		return IdleInCart
	default:
		return IdleNotInCart
	}
}

// View is what the page renders for one card.
type View struct {
	ID              string `json:"id"`
	Nombre          string `json:"nombre"`
	Precio          string `json:"precio"`
	Imagen          string `json:"imagen,omitempty"`
	Talle           string `json:"talle,omitempty"`
	State           State  `json:"state"`
	AddVisible      bool   `json:"add_visible"`
	SelectorVisible bool   `json:"selector_visible"`
	ConfirmVisible  bool   `json:"confirm_visible"`
	Quantity        string `json:"quantity"`
	InCart          int    `json:"in_cart"`
}

// Board owns every card rendered on one page. At most one card is editing.
// Board is not safe for concurrent use; callers serialize access per page.
type Board struct {
	SessionID string
	Cart      Committer
	Logger    zerolog.Logger

	order  []string
	cards  map[string]*card
	active string
}

// NewBoard builds a board with one idle card per line template.
func NewBoard(sessionID string, lines []cart.Item, committer Committer) *Board {
	b := &Board{
		SessionID: sessionID,
		Cart:      committer,
		Logger:    zerolog.Nop(),
		order:     make([]string, 0, len(lines)),
		cards:     make(map[string]*card, len(lines)),
	}
	for _, line := range lines {
		if _, dup := b.cards[line.ID]; dup || strings.TrimSpace(line.ID) == "" {
			continue
		}
		b.order = append(b.order, line.ID)
		b.cards[line.ID] = &card{line: line}
	}
	return b
}

// Active returns the id of the card being edited, if any.
func (b *Board) Active() string { return b.active }

// Reconcile applies a cart snapshot to every card that is not editing.
func (b *Board) Reconcile(c cart.Cart) {
	for _, id := range b.order {
		cd := b.cards[id]
		if cd.editing {
			continue
		}
		cd.inCart = 0
		if it, ok := c.Find(id); ok {
			cd.inCart = it.Cantidad
		}
		cd.input = ""
	}
}

// HandleCartUpdated is the cartUpdated subscriber for this board.
func (b *Board) HandleCartUpdated(_ context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(cart.Updated)
	if !ok {
		return fmt.Errorf("productcard: unexpected payload %T", ev.Payload)
	}
	b.Reconcile(payload.Carrito)
	return nil
}

func (b *Board) card(id string) (*card, error) {
	cd, ok := b.cards[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrUnknownCard
	}
	return cd, nil
}

// begin puts id into editing, committing any other card that is mid-edit first.
func (b *Board) begin(ctx context.Context, cd *card, preload string) error {
	if cd.editing {
		return nil
	}
	if b.active != "" && b.active != cd.line.ID {
		if err := b.Confirm(ctx); err != nil {
			return err
		}
	}
	cd.editing = true
	cd.input = preload
	b.active = cd.line.ID
	return nil
}

// Add starts editing a card that is not in the cart with quantity 1. A card
// already in the cart opens with its cart quantity instead.
func (b *Board) Add(ctx context.Context, id string) (View, error) {
	cd, err := b.card(id)
	if err != nil {
		return View{}, err
	}
	if cd.inCart > 0 {
		return b.ClickQuantity(ctx, id)
	}
	if err := b.begin(ctx, cd, "1"); err != nil {
		return View{}, err
	}
	return cd.view(), nil
}

// ClickQuantity starts editing a card preloaded with its cart quantity.
func (b *Board) ClickQuantity(ctx context.Context, id string) (View, error) {
	cd, err := b.card(id)
	if err != nil {
		return View{}, err
	}
	preload := "1"
	if cd.inCart > 0 {
		preload = strconv.Itoa(cd.inCart)
	}
	if err := b.begin(ctx, cd, preload); err != nil {
		return View{}, err
	}
	return cd.view(), nil
}

// Increment raises the pending quantity by one. There is no upper bound.
func (b *Board) Increment(ctx context.Context, id string) (View, error) {
	cd, err := b.editingCard(ctx, id)
	if err != nil {
		return View{}, err
	}
	if q := parseQuantity(cd.input); q < math.MaxInt {
		cd.input = strconv.Itoa(q + 1)
	}
	return cd.view(), nil
}

// Decrement lowers the pending quantity by one, never below 1.
func (b *Board) Decrement(ctx context.Context, id string) (View, error) {
	cd, err := b.editingCard(ctx, id)
	if err != nil {
		return View{}, err
	}
	if q := parseQuantity(cd.input); q-1 >= 1 {
		cd.input = strconv.Itoa(q - 1)
	}
	return cd.view(), nil
}

// Input replaces the pending quantity with the digits of raw.
func (b *Board) Input(ctx context.Context, id, raw string) (View, error) {
	cd, err := b.editingCard(ctx, id)
	if err != nil {
		return View{}, err
	}
	cd.input = DigitsOnly(raw)
	return cd.view(), nil
}

func (b *Board) editingCard(ctx context.Context, id string) (*card, error) {
	cd, err := b.card(id)
	if err != nil {
		return nil, err
	}
	if !cd.editing {
		preload := "1"
		if cd.inCart > 0 {
			preload = strconv.Itoa(cd.inCart)
		}
		if err := b.begin(ctx, cd, preload); err != nil {
			return nil, err
		}
	}
	return cd, nil
}

// Confirm commits the editing card's quantity. The editing flag is cleared
// before the write so the resulting broadcast reconciles the card. With no
// card editing it does nothing.
func (b *Board) Confirm(ctx context.Context) error {
	if b.active == "" {
		return nil
	}
	cd, ok := b.cards[b.active]
	if !ok {
		b.active = ""
		return nil
	}
	qty := parseQuantity(cd.input)
	pending := cd.input
	cd.editing = false
	b.active = ""
	if b.Cart == nil {
		return errors.New("productcard: cart not configured")
	}
	if _, err := b.Cart.SetQuantity(ctx, b.SessionID, cd.line, qty); err != nil {
		cd.editing = true
		cd.input = pending
		b.active = cd.line.ID
		b.Logger.Error().Err(err).Str("product_id", cd.line.ID).Msg("commit card quantity")
		return fmt.Errorf("productcard: commit %s: %w", cd.line.ID, err)
	}
	if qty > 0 {
		obs.ObserveCardConfirm("in_cart")
	} else {
		obs.ObserveCardConfirm("removed")
	}
	return nil
}

// ConfirmCard commits id when it is the editing card.
func (b *Board) ConfirmCard(ctx context.Context, id string) (View, error) {
	cd, err := b.card(id)
	if err != nil {
		return View{}, err
	}
	if cd.editing {
		if err := b.Confirm(ctx); err != nil {
			return cd.view(), err
		}
	}
	return cd.view(), nil
}

// View renders one card.
func (b *Board) View(id string) (View, error) {
	cd, err := b.card(id)
	if err != nil {
		return View{}, err
	}
	return cd.view(), nil
}

// Views renders every card in display order.
func (b *Board) Views() []View {
	out := make([]View, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.cards[id].view())
	}
	return out
}

func (c *card) view() View {
	v := View{
		ID:     c.line.ID,
		Nombre: c.line.Nombre,
		Precio: pricing.FormatARS(pricing.ParsePrice(string(c.line.Precio))),
		Imagen: c.line.Imagen,
		Talle:  c.line.Talle,
		State:  c.state(),
		InCart: c.inCart,
	}
	switch v.State {
	case Editing:
		v.SelectorVisible = true
		v.ConfirmVisible = true
		v.Quantity = c.input
	case IdleInCart:
		v.SelectorVisible = true
		v.Quantity = strconv.Itoa(c.inCart)
	default:
		v.AddVisible = true
	}
	return v
}

// DigitsOnly strips every character that is not an ASCII digit.
func DigitsOnly(raw string) string {
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func parseQuantity(s string) int {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) && q > 0 {
		return q
	}
	if err != nil || q < 0 {
		return 0
	}
	return q
}
