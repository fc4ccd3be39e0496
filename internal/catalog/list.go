package catalog

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListParams narrows the product listing.
type ListParams struct {
	Query    string
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	IDs      map[string]bool
	// Page and Limit select the page; zero means the first page of defaultLimit.
	Page  int
	Limit int
}

// ListResult is one page of filtered products plus the facets of the whole
// filtered set.
type ListResult struct {
	Products   []Product
	Total      int
	Categories []string
	Brands     []string
}

// ParseListParams reads the busqueda (or q), categoria, marca, precio_minimo,
// precio_maximo and ids filters. Malformed prices are rejected. Page and
// Limit are left to common.ParsePagination.
func ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Query:    strings.TrimSpace(values.Get("busqueda")),
		Category: strings.TrimSpace(values.Get("categoria")),
		Brand:    strings.TrimSpace(values.Get("marca")),
	}
	if params.Query == "" {
		params.Query = strings.TrimSpace(values.Get("q"))
	}
	if raw := strings.TrimSpace(values.Get("ids")); raw != "" {
		params.IDs = make(map[string]bool)
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				params.IDs[id] = true
			}
		}
	}
	var err error
	if params.MinPrice, err = priceParam(values, "precio_minimo"); err != nil {
		return ListParams{}, err
	}
	if params.MaxPrice, err = priceParam(values, "precio_maximo"); err != nil {
		return ListParams{}, err
	}
	if params.MinPrice != nil && params.MaxPrice != nil && params.MinPrice.GreaterThan(*params.MaxPrice) {
		return ListParams{}, badRequest("precio_minimo", "precio_minimo cannot be greater than precio_maximo")
	}
	return params, nil
}

func priceParam(values url.Values, field string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, badRequest(field, "must be a number")
	}
	if d.IsNegative() {
		return nil, badRequest(field, "must be zero or greater")
	}
	return &d, nil
}

func badRequest(field, msg string) error {
	return common.NewAppError("BAD_REQUEST", "invalid "+field, http.StatusBadRequest, nil).
		WithDetails(map[string]string{"field": field, "message": msg})
}

func (p ListParams) matches(prod Product) bool {
	if p.IDs != nil && !p.IDs[prod.ID] {
		return false
	}
	if p.Query != "" {
		q := strings.ToLower(p.Query)
		if !strings.Contains(strings.ToLower(prod.Nombre), q) && !strings.Contains(strings.ToLower(prod.Descripcion), q) {
			return false
		}
	}
	if p.Category != "" && prod.Categoria != p.Category {
		return false
	}
	if p.Brand != "" && prod.Marca != p.Brand {
		return false
	}
	if p.MinPrice != nil || p.MaxPrice != nil {
		price := pricing.ParsePrice(prod.Precio)
		if p.MinPrice != nil && price.LessThan(*p.MinPrice) {
			return false
		}
		if p.MaxPrice != nil && price.GreaterThan(*p.MaxPrice) {
			return false
		}
	}
	return true
}

// List filters the catalog and returns the requested page in catalog order.
// Categories and Brands are sorted and taken from every matching product, not
// only the current page.
func (c *Catalog) List(params ListParams) ListResult {
	var matched []Product
	categories := map[string]struct{}{}
	brands := map[string]struct{}{}
	for _, prod := range c.Products() {
		if !params.matches(prod) {
			continue
		}
		matched = append(matched, prod)
		if prod.Categoria != "" {
			categories[prod.Categoria] = struct{}{}
		}
		if prod.Marca != "" {
			brands[prod.Marca] = struct{}{}
		}
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	page := common.NewPagination(params.Page, min(limit, maxLimit), len(matched))
	start, end := page.Window()
	return ListResult{
		Products:   matched[start:end],
		Total:      len(matched),
		Categories: sortedKeys(categories),
		Brands:     sortedKeys(brands),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
