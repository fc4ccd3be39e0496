// Package shipping enumerates the delivery methods offered at checkout.
package shipping

import "strings"

// Option identifies one delivery method. The zero value means nothing is selected.
type Option string

const (
	None           Option = ""
	Domicilio      Option = "domicilio"
	RetiroSucursal Option = "retiro_sucursal"
	EnvioExpres    Option = "envio_expres"
	DemoTracking   Option = "demo_tracking"
)

// Method describes an option as shown on the checkout page.
type Method struct {
	ID          Option `json:"id"`
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
	Costo       int64  `json:"costo"`
}

var methods = []Method{
	{ID: Domicilio, Nombre: "Envío a domicilio", Descripcion: "Recibe tus productos directamente en tu domicilio.", Costo: 3500},
	{ID: RetiroSucursal, Nombre: "Retiro en sucursal", Descripcion: "Retira tu pedido en nuestra sucursal más cercana.", Costo: 0},
	{ID: EnvioExpres, Nombre: "Envío exprés", Descripcion: "Recibe tu pedido en menos de 24 horas.", Costo: 8500},
	{ID: DemoTracking, Nombre: "Demo con seguimiento", Descripcion: "Pedido de prueba con seguimiento del envío.", Costo: 0},
}

// Methods lists every offered option in display order.
func Methods() []Method {
	return append([]Method(nil), methods...)
}

// Parse converts a submitted form value into an Option.
func Parse(raw string) (Option, bool) {
	switch Option(strings.ToLower(strings.TrimSpace(raw))) {
	case Domicilio:
		return Domicilio, true
	case RetiroSucursal:
		return RetiroSucursal, true
	case EnvioExpres:
		return EnvioExpres, true
	case DemoTracking:
		return DemoTracking, true
	}
	return None, false
}

// Valid reports whether o is one of the offered options.
func (o Option) Valid() bool {
	_, ok := Parse(string(o))
	return ok && o != None
}

// Cost returns the fixed shipping cost in whole pesos. Unknown options cost nothing.
func (o Option) Cost() int64 {
	for _, m := range methods {
		if m.ID == o {
			return m.Costo
		}
	}
	return 0
}

// Label is the human readable method name used in the final summary.
func (o Option) Label() string {
	for _, m := range methods {
		if m.ID == o {
			return m.Nombre
		}
	}
	return "Sin definir"
}

// ShowsDetails reports whether the shipping-details panel is visible.
func (o Option) ShowsDetails() bool {
	return o.Valid() && o != RetiroSucursal
}

// RequiresAddress reports whether street, city and postcode are mandatory.
func (o Option) RequiresAddress() bool {
	return o != RetiroSucursal && o != DemoTracking
}

// ShowsTracking reports whether the order-status card is revealed on the summary.
func (o Option) ShowsTracking() bool {
	return o == DemoTracking
}
