// Package submit turns the checkout page state into an order request for the
// checkout backend and renders the outcome.
package submit

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/checkout"
	"github.com/noah-isme/toko-storefront/internal/common"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// Item is one order line as the backend expects it.
type Item struct {
	ID       string     `json:"id" validate:"required"`
	Nombre   string     `json:"nombre"`
	Precio   cart.Price `json:"precio"`
	Cantidad int        `json:"cantidad" validate:"min=1"`
	Talle    string     `json:"talle,omitempty"`
}

// Payload is the order request body.
type Payload struct {
	NombreReceptor string          `json:"nombre_receptor" validate:"required"`
	Telefono       string          `json:"telefono"`
	Calle          string          `json:"calle"`
	Departamento   string          `json:"departamento"`
	Ciudad         string          `json:"ciudad"`
	CP             string          `json:"cp"`
	TipoTransporte shipping.Option `json:"tipo_transporte"`
	CostoEnvio     int64           `json:"costo_envio"`
	MetodoPago     string          `json:"metodo_pago,omitempty"`
	Items          []Item          `json:"items" validate:"required,min=1,dive"`
}

// BuildPayload assembles the request from the form, the shipping choice and a cart snapshot.
// With nothing selected the backend default of home delivery applies.
func BuildPayload(f checkout.Form, opt shipping.Option, c cart.Cart) Payload {
	f = f.Trimmed()
	if !opt.Valid() {
		opt = shipping.Domicilio
	}
	items := make([]Item, 0, len(c))
	for _, it := range c {
		items = append(items, Item{
			ID:       it.ID,
			Nombre:   it.Nombre,
			Precio:   it.Precio,
			Cantidad: it.Cantidad,
			Talle:    it.Talle,
		})
	}
	return Payload{
		NombreReceptor: f.Nombre,
		Telefono:       f.Telefono,
		Calle:          f.Calle,
		Departamento:   f.Departamento,
		Ciudad:         f.Ciudad,
		CP:             f.CodigoPostal,
		TipoTransporte: opt,
		CostoEnvio:     opt.Cost(),
		MetodoPago:     f.MetodoPago,
		Items:          items,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(addressRule, Payload{})
	return v
}

func addressRule(sl validator.StructLevel) {
	p := sl.Current().Interface().(Payload)
	if !p.TipoTransporte.RequiresAddress() {
		return
	}
	if strings.TrimSpace(p.Calle) == "" {
		sl.ReportError(p.Calle, "calle", "Calle", "required", "")
	}
	if strings.TrimSpace(p.Ciudad) == "" {
		sl.ReportError(p.Ciudad, "ciudad", "Ciudad", "required", "")
	}
	if strings.TrimSpace(p.CP) == "" {
		sl.ReportError(p.CP, "cp", "CP", "required", "")
	}
}

// Validate checks the rules the backend enforces so obviously incomplete
// orders never leave the page. The error is an AppError with code MISSING_DATA.
func (p Payload) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	addressMissing := false
	for _, fe := range verrs {
		fields = append(fields, strings.TrimPrefix(fe.Namespace(), "Payload."))
		switch fe.StructField() {
		case "Calle", "Ciudad", "CP":
			addressMissing = true
		}
	}
	message := "Falta nombre del receptor"
	if addressMissing && strings.TrimSpace(p.NombreReceptor) != "" {
		message = "Faltan datos de dirección"
	}
	if len(p.Items) == 0 {
		message = "El carrito está vacío"
	}
	return common.NewAppError("MISSING_DATA", message, http.StatusBadRequest, err).
		WithDetails(map[string]any{"fields": fields})
}
