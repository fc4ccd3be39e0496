package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrNotFound indicates the product id is not part of the catalog.
var ErrNotFound = errors.New("product not found")

// Product is one entry rendered as a product card on the storefront.
type Product struct {
	ID          string `yaml:"id" json:"id"`
	Nombre      string `yaml:"nombre" json:"nombre"`
	Descripcion string `yaml:"descripcion,omitempty" json:"descripcion,omitempty"`
	Precio      string `yaml:"precio" json:"precio"`
	Categoria   string `yaml:"categoria,omitempty" json:"categoria,omitempty"`
	Marca       string `yaml:"marca,omitempty" json:"marca,omitempty"`
	Imagen      string `yaml:"imagen,omitempty" json:"imagen,omitempty"`
	Talle       string `yaml:"talle,omitempty" json:"talle,omitempty"`
}

type document struct {
	Products []Product `yaml:"products"`
}

// Catalog is an immutable, ordered product list indexed by id.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// Load reads the catalog from path, or the embedded demo catalog when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
		data = raw
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(doc.Products)
}

// New builds a catalog from products, rejecting blank or duplicate ids.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, errors.New("catalog: product id is required")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// Products returns the products in display order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Get looks up a product by id.
func (c *Catalog) Get(id string) (Product, error) {
	if c == nil {
		return Product{}, ErrNotFound
	}
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, ErrNotFound
	}
	return c.products[idx], nil
}
