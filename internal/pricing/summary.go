package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// EmptyMessage is rendered in place of the line list for an empty cart.
const EmptyMessage = "Tu carrito está vacío."

// Line is one rendered cart row.
type Line struct {
	ID        string `json:"id"`
	Nombre    string `json:"nombre"`
	Cantidad  int    `json:"cantidad"`
	Imagen    string `json:"imagen,omitempty"`
	Talle     string `json:"talle,omitempty"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// Summary is the order summary view model.
type Summary struct {
	Lines        []Line          `json:"lines"`
	Empty        bool            `json:"empty"`
	EmptyMessage string          `json:"empty_message,omitempty"`
	Shipping     shipping.Option `json:"shipping_option"`
	Amounts      Totals          `json:"-"`
	SubtotalText string          `json:"subtotal"`
	ShippingText string          `json:"shipping"`
	TotalText    string          `json:"total"`
}

// Summarize renders the order summary for a cart and the selected shipping option.
func Summarize(c cart.Cart, opt shipping.Option) Summary {
	items := make([]Item, 0, len(c))
	lines := make([]Line, 0, len(c))
	for _, it := range c {
		priced := Item{Qty: it.Cantidad, UnitPrice: ParsePrice(string(it.Precio))}
		items = append(items, priced)
		lines = append(lines, Line{
			ID:        it.ID,
			Nombre:    it.Nombre,
			Cantidad:  it.Cantidad,
			Imagen:    it.Imagen,
			Talle:     it.Talle,
			UnitPrice: FormatARS(priced.UnitPrice),
			LineTotal: FormatARS(LineTotal(priced)),
		})
	}
	totals := Compute(items, decimal.NewFromInt(opt.Cost()))
	s := Summary{
		Lines:        lines,
		Empty:        len(c) == 0,
		Shipping:     opt,
		Amounts:      totals,
		SubtotalText: FormatARS(totals.Subtotal),
		ShippingText: FormatARS(totals.Shipping),
		TotalText:    FormatARS(totals.Total),
	}
	if s.Empty {
		s.EmptyMessage = EmptyMessage
	}
	return s
}
