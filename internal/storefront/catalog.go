package storefront

import (
	"errors"
	"fmt"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/catalog"
)

// CatalogLines turns catalog products into cart line templates.
type CatalogLines struct {
	Catalog *catalog.Catalog
}

// Lines returns one template per product in catalog order.
func (c CatalogLines) Lines() []cart.Item {
	if c.Catalog == nil {
		return nil
	}
	products := c.Catalog.Products()
	lines := make([]cart.Item, 0, len(products))
	for _, p := range products {
		lines = append(lines, lineFrom(p))
	}
	return lines
}

// LineFor implements cart.ProductLookup.
func (c CatalogLines) LineFor(id string) (cart.Item, error) {
	if c.Catalog == nil {
		return cart.Item{}, errors.New("storefront: catalog not configured")
	}
	p, err := c.Catalog.Get(id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return cart.Item{}, fmt.Errorf("%s: %w", id, cart.ErrUnknownProduct)
		}
		return cart.Item{}, err
	}
	return lineFrom(p), nil
}

func lineFrom(p catalog.Product) cart.Item {
	return cart.Item{
		ID:     p.ID,
		Nombre: p.Nombre,
		Precio: cart.Price(p.Precio),
		Imagen: p.Imagen,
		Talle:  p.Talle,
	}
}
