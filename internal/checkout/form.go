package checkout

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// NotSpecified replaces empty contact fields in the final summary.
const NotSpecified = "No especificado"

var echoPolicy = bluemonday.StrictPolicy()

// Form holds the checkout field values as last submitted by the page.
type Form struct {
	Nombre       string `json:"nombre"`
	Telefono     string `json:"telefono"`
	Calle        string `json:"calle"`
	Departamento string `json:"departamento"`
	Ciudad       string `json:"ciudad"`
	CodigoPostal string `json:"codigo_postal"`
	MetodoPago   string `json:"metodo_pago"`
}

// Trimmed returns the form with surrounding whitespace removed from every field.
func (f Form) Trimmed() Form {
	return Form{
		Nombre:       strings.TrimSpace(f.Nombre),
		Telefono:     strings.TrimSpace(f.Telefono),
		Calle:        strings.TrimSpace(f.Calle),
		Departamento: strings.TrimSpace(f.Departamento),
		Ciudad:       strings.TrimSpace(f.Ciudad),
		CodigoPostal: strings.TrimSpace(f.CodigoPostal),
		MetodoPago:   strings.TrimSpace(f.MetodoPago),
	}
}

// Cleaned returns the form with markup stripped from every field.
func (f Form) Cleaned() Form {
	return Form{
		Nombre:       Clean(f.Nombre),
		Telefono:     Clean(f.Telefono),
		Calle:        Clean(f.Calle),
		Departamento: Clean(f.Departamento),
		Ciudad:       Clean(f.Ciudad),
		CodigoPostal: Clean(f.CodigoPostal),
		MetodoPago:   Clean(f.MetodoPago),
	}
}

// cleanPasses bounds how many layers of entity encoding Clean unwraps.
const cleanPasses = 4

// Clean strips markup from user text before it is echoed back. Entities are
// decoded only while the decoded text sanitizes to itself, so encoded markup
// such as "&lt;b&gt;" is stripped rather than revived. Input still changing
// after cleanPasses is returned in its escaped form.
func Clean(s string) string {
	cur := s
	for range cleanPasses {
		next := html.UnescapeString(echoPolicy.Sanitize(cur))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	return strings.TrimSpace(echoPolicy.Sanitize(cur))
}

// FinalSummary is the read-only contact and shipping recap on the last step.
type FinalSummary struct {
	Nombre                 string `json:"nombre"`
	Telefono               string `json:"telefono"`
	ShippingSectionVisible bool   `json:"shipping_section_visible"`
	AddressLine1           string `json:"address_line1,omitempty"`
	AddressLine2           string `json:"address_line2,omitempty"`
	ShippingMethod         string `json:"shipping_method"`
	OrderStatusVisible     bool   `json:"order_status_visible"`
}

// BuildFinalSummary renders the recap for the given form values and option.
func BuildFinalSummary(f Form, opt shipping.Option) FinalSummary {
	s := FinalSummary{
		Nombre:             orNotSpecified(Clean(f.Nombre)),
		Telefono:           orNotSpecified(Clean(f.Telefono)),
		ShippingMethod:     opt.Label(),
		OrderStatusVisible: opt.ShowsTracking(),
	}
	if opt.Valid() && opt.RequiresAddress() {
		s.ShippingSectionVisible = true
		line1 := Clean(f.Calle)
		if depto := Clean(f.Departamento); depto != "" {
			line1 += ", " + depto
		}
		s.AddressLine1 = line1
		s.AddressLine2 = Clean(f.Ciudad) + ", " + Clean(f.CodigoPostal)
	}
	return s
}

func orNotSpecified(s string) string {
	if s == "" {
		return NotSpecified
	}
	return s
}
