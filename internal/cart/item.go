package cart

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Price keeps the unit price exactly as the page stored it. The storefront
// writes both JSON numbers and strings ("12999,50"), so the raw text is kept
// and coerced only when totals are computed.
type Price string

// UnmarshalJSON accepts numbers, strings and null.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// MarshalJSON writes plain numeric text as a JSON number and anything else as a string.
func (p Price) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(p))
	if s != "" && isJSONNumber(s) {
		return []byte(s), nil
	}
	return json.Marshal(string(p))
}

func isJSONNumber(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false
	}
	return json.Valid([]byte(s))
}

// Item is one cart line.
type Item struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Precio   Price  `json:"precio"`
	Cantidad int    `json:"cantidad"`
	Imagen   string `json:"imagen,omitempty"`
	Talle    string `json:"talle,omitempty"`
}

// Cart is the ordered list of lines. Order is display order only.
type Cart []Item

// Find returns the line for id.
func (c Cart) Find(id string) (Item, bool) {
	if i := c.index(id); i >= 0 {
		return c[i], true
	}
	return Item{}, false
}

func (c Cart) index(id string) int {
	for i, it := range c {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy that does not share backing storage with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Units is the total number of units across all lines.
func (c Cart) Units() int {
	n := 0
	for _, it := range c {
		n += it.Cantidad
	}
	return n
}

// WithQuantity returns a new cart where the line for item.ID holds qty units.
// A new line is appended from item when absent; qty <= 0 removes the line.
func WithQuantity(c Cart, item Item, qty int) Cart {
	out := c.Clone()
	idx := out.index(item.ID)
	if qty <= 0 {
		if idx < 0 {
			return out
		}
		return append(out[:idx], out[idx+1:]...)
	}
	if idx >= 0 {
		out[idx].Cantidad = qty
		return out
	}
	item.Cantidad = qty
	return append(out, item)
}

// Without returns a new cart without the line for id.
func Without(c Cart, id string) Cart {
	return WithQuantity(c, Item{ID: id}, 0)
}

// normalize drops lines that break the positive-quantity invariant.
func normalize(c Cart) Cart {
	out := make(Cart, 0, len(c))
	for _, it := range c {
		if strings.TrimSpace(it.ID) == "" || it.Cantidad < 1 {
			continue
		}
		out = append(out, it)
	}
	return out
}
