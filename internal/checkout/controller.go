// Package checkout drives the checkout wizard page: step navigation, form
// state, the shipping choice and the order summary shown alongside.
package checkout

import (
	"context"
	"fmt"

	"github.com/noah-isme/toko-storefront/internal/cart"
	"github.com/noah-isme/toko-storefront/internal/events"
	"github.com/noah-isme/toko-storefront/internal/pricing"
	"github.com/noah-isme/toko-storefront/internal/shipping"
)

// ContinueShoppingURL is where the continue-shopping control navigates.
const ContinueShoppingURL = "/"

// Controller owns the checkout state of one page. It is not safe for
// concurrent use; callers serialize access per page.
type Controller struct {
	wizard      *Wizard
	form        Form
	option      shipping.Option
	cart        cart.Cart
	summary     pricing.Summary
	final       *FinalSummary
	populations int
}

// NewController builds a controller at step 1 for the given cart snapshot.
func NewController(steps int, snapshot cart.Cart) *Controller {
	c := &Controller{wizard: NewWizard(steps), cart: snapshot.Clone()}
	c.render()
	if c.wizard.AtFinal() {
		c.populateFinal()
	}
	return c
}

func (c *Controller) render() {
	c.summary = pricing.Summarize(c.cart, c.option)
}

func (c *Controller) populateFinal() {
	c.render()
	fs := BuildFinalSummary(c.form, c.option)
	c.final = &fs
	c.populations++
}

// Next advances the wizard; entering the last step populates the summaries.
func (c *Controller) Next() View {
	if c.wizard.Next() && c.wizard.AtFinal() {
		c.populateFinal()
	}
	return c.View()
}

// Prev moves the wizard back one step.
func (c *Controller) Prev() View {
	c.wizard.Prev()
	return c.View()
}

// UpdateForm replaces the form values.
func (c *Controller) UpdateForm(f Form) View {
	c.form = f.Trimmed()
	return c.View()
}

// SelectShipping changes the shipping option and re-renders the order summary.
func (c *Controller) SelectShipping(opt shipping.Option) View {
	c.option = opt
	c.render()
	return c.View()
}

// HandleCartUpdated is the cartUpdated subscriber for this page.
func (c *Controller) HandleCartUpdated(_ context.Context, ev events.Event) error {
	payload, ok := ev.Payload.(cart.Updated)
	if !ok {
		return fmt.Errorf("checkout: unexpected payload %T", ev.Payload)
	}
	c.cart = payload.Carrito.Clone()
	c.render()
	return nil
}

// Form returns the current form values.
func (c *Controller) Form() Form { return c.form }

// Option returns the selected shipping option.
func (c *Controller) Option() shipping.Option { return c.option }

// Cart returns the last cart snapshot seen by the page.
func (c *Controller) Cart() cart.Cart { return c.cart.Clone() }

// Summary returns the cached order summary.
func (c *Controller) Summary() pricing.Summary { return c.summary }

// SummaryPopulations counts entries into the last step.
func (c *Controller) SummaryPopulations() int { return c.populations }

// View is the checkout page view model.
type View struct {
	CurrentStep            int               `json:"current_step"`
	Steps                  int               `json:"steps"`
	Panels                 []bool            `json:"panels"`
	Indicators             []Indicator       `json:"indicators"`
	Form                   Form              `json:"form"`
	ShippingOption         shipping.Option   `json:"tipo_envio"`
	ShippingMethods        []shipping.Method `json:"shipping_methods"`
	ShippingDetailsVisible bool              `json:"shipping_details_visible"`
	Summary                pricing.Summary   `json:"summary"`
	FinalSummary           *FinalSummary     `json:"final_summary,omitempty"`
	ContinueShoppingURL    string            `json:"continue_shopping_url"`
}

// View renders the page.
func (c *Controller) View() View {
	v := View{
		CurrentStep:            c.wizard.Current(),
		Steps:                  c.wizard.Steps(),
		Panels:                 c.wizard.Panels(),
		Indicators:             c.wizard.Indicators(),
		Form:                   c.form.Cleaned(),
		ShippingOption:         c.option,
		ShippingMethods:        shipping.Methods(),
		ShippingDetailsVisible: c.option.ShowsDetails(),
		Summary:                c.summary,
		ContinueShoppingURL:    ContinueShoppingURL,
	}
	if c.wizard.AtFinal() && c.final != nil {
		fs := *c.final
		v.FinalSummary = &fs
	}
	return v
}
