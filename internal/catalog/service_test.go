package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-storefront/internal/catalog"
	"github.com/noah-isme/toko-storefront/internal/common"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	products := c.Products()
	require.NotEmpty(t, products)
	require.Equal(t, "1", products[0].ID)

	p, err := c.Get("4")
	require.NoError(t, err)
	require.Equal(t, "Camiseta Nike", p.Nombre)
	require.Equal(t, "M", p.Talle)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := catalog.Parse([]byte("products:\n  - id: a\n  - id: a\n"))
	require.Error(t, err)

	_, err = catalog.Parse([]byte("products:\n  - nombre: sin id\n"))
	require.Error(t, err)
}

func TestGetUnknown(t *testing.T) {
	c, err := catalog.New([]catalog.Product{{ID: "x"}})
	require.NoError(t, err)
	_, err = c.Get("y")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestProductHandler(t *testing.T) {
	c, err := catalog.New([]catalog.Product{{ID: "x", Nombre: "Remera", Precio: "100"}})
	require.NoError(t, err)
	h := &catalog.Handler{Catalog: c}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/x", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "x")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	h.Product(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data catalog.Listing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Remera", resp.Data.Nombre)
	require.Equal(t, "$100,00", resp.Data.PrecioTexto)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil)
	routeCtx = chi.NewRouteContext()
	routeCtx.URLParams.Add("id", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec = httptest.NewRecorder()
	h.Product(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductsFilterByIDs(t *testing.T) {
	c, err := catalog.New([]catalog.Product{
		{ID: "a", Nombre: "Remera", Precio: "10000"},
		{ID: "b", Nombre: "Gorra", Precio: "2500,50"},
		{ID: "c", Nombre: "Buzo", Precio: "n/a"},
	})
	require.NoError(t, err)
	h := &catalog.Handler{Catalog: c}

	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?ids=c,%20b,zzz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []catalog.Listing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.Equal(t, "b", resp.Data[0].ID)
	require.Equal(t, "$2.500,50", resp.Data[0].PrecioTexto)
	require.Equal(t, "$0,00", resp.Data[1].PrecioTexto)
}

func TestListFiltersAndFacets(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)

	res := c.List(catalog.ListParams{Query: "SMARTPHONE"})
	require.Equal(t, 2, res.Total)
	require.Equal(t, "2", res.Products[0].ID)
	require.Equal(t, []string{"Electrónica"}, res.Categories)
	require.Equal(t, []string{"Apple", "Samsung"}, res.Brands)

	res = c.List(catalog.ListParams{Brand: "Adidas"})
	require.Equal(t, 2, res.Total)
	require.Equal(t, []string{"Calzado", "Deportes"}, res.Categories)

	params, err := catalog.ParseListParams(url.Values{"precio_minimo": {"29999.50"}, "precio_maximo": {"90000"}})
	require.NoError(t, err)
	res = c.List(params)
	ids := make([]string, 0, len(res.Products))
	for _, p := range res.Products {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"4", "5", "6"}, ids)

	res = c.List(catalog.ListParams{Category: "Ropa", Brand: "Apple"})
	require.Zero(t, res.Total)
	require.Empty(t, res.Products)
	require.Empty(t, res.Categories)
}

func TestListPaginates(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)

	res := c.List(catalog.ListParams{Page: 3, Limit: 3})
	require.Equal(t, 8, res.Total)
	require.Len(t, res.Products, 2)
	require.Equal(t, "7", res.Products[0].ID)
	// facets cover the whole filtered set, not just the page
	require.Len(t, res.Categories, 5)

	res = c.List(catalog.ListParams{Page: 9, Limit: 3})
	require.Empty(t, res.Products)
	require.Equal(t, 8, res.Total)
}

func TestParseListParamsRejectsBadPrices(t *testing.T) {
	cases := map[string]url.Values{
		"not a number": {"precio_minimo": {"barato"}},
		"negative":     {"precio_maximo": {"-1"}},
		"min over max": {"precio_minimo": {"500"}, "precio_maximo": {"100"}},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.ParseListParams(values)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
		})
	}

	params, err := catalog.ParseListParams(url.Values{"q": {" nike "}, "ids": {"1, ,4"}})
	require.NoError(t, err)
	require.Equal(t, "nike", params.Query)
	require.Equal(t, map[string]bool{"1": true, "4": true}, params.IDs)
}

func TestProductsHandlerPaginationEnvelope(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	h := &catalog.Handler{Catalog: c}

	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?categoria=Ropa&page=1&limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []catalog.Listing `json:"data"`
		Pagination common.Pagination `json:"pagination"`
		Categorias []string          `json:"categorias"`
		Marcas     []string          `json:"marcas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "4", resp.Data[0].ID)
	require.Equal(t, common.Pagination{Page: 1, PerPage: 1, TotalItems: 2, TotalPages: 2, HasNext: true}, resp.Pagination)
	require.Equal(t, []string{"Ropa"}, resp.Categorias)
	require.Equal(t, []string{"Levis", "Nike"}, resp.Marcas)

	rec = httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?precio_minimo=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "precio_minimo")
}
