package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/pricing"
)

// Listing is a product as rendered on its card, with the display price.
type Listing struct {
	Product
	PrecioTexto string `json:"precio_texto"`
}

func listingOf(p Product) Listing {
	return Listing{Product: p, PrecioTexto: pricing.FormatARS(pricing.ParsePrice(p.Precio))}
}

// Handler exposes the read-only catalog.
type Handler struct {
	Catalog *Catalog
}

type listResponse struct {
	Data       []Listing         `json:"data"`
	Pagination common.Pagination `json:"pagination"`
	Categorias []string          `json:"categorias"`
	Marcas     []string          `json:"marcas"`
}

// Products handles GET /api/v1/products. Filters are described on
// ParseListParams; page and limit paginate the filtered set.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	params.Page, params.Limit = common.ParsePagination(r, defaultLimit, maxLimit)

	res := h.Catalog.List(params)
	out := make([]Listing, 0, len(res.Products))
	for _, p := range res.Products {
		out = append(out, listingOf(p))
	}
	common.JSON(w, http.StatusOK, listResponse{
		Data:       out,
		Pagination: common.NewPagination(params.Page, params.Limit, res.Total),
		Categorias: res.Categories,
		Marcas:     res.Brands,
	})
}

// Product handles GET /api/v1/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case err != nil:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load product", nil)
	default:
		common.Data(w, http.StatusOK, listingOf(p))
	}
}
