package shipping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionCostsAndPanels(t *testing.T) {
	cases := []struct {
		opt          Option
		cost         int64
		showsDetails bool
		needsAddress bool
		label        string
	}{
		{Domicilio, 3500, true, true, "Envío a domicilio"},
		{RetiroSucursal, 0, false, false, "Retiro en sucursal"},
		{EnvioExpres, 8500, true, true, "Envío exprés"},
		{DemoTracking, 0, true, false, "Demo con seguimiento"},
		{None, 0, false, true, "Sin definir"},
	}
	for _, tc := range cases {
		t.Run(string(tc.opt), func(t *testing.T) {
			require.Equal(t, tc.cost, tc.opt.Cost())
			require.Equal(t, tc.showsDetails, tc.opt.ShowsDetails())
			require.Equal(t, tc.needsAddress, tc.opt.RequiresAddress())
			require.Equal(t, tc.label, tc.opt.Label())
		})
	}
	require.True(t, DemoTracking.ShowsTracking())
	require.False(t, Domicilio.ShowsTracking())
}

func TestParse(t *testing.T) {
	opt, ok := Parse("  Retiro_Sucursal ")
	require.True(t, ok)
	require.Equal(t, RetiroSucursal, opt)

	opt, ok = Parse("teleport")
	require.False(t, ok)
	require.Equal(t, None, opt)
	require.False(t, Option("teleport").Valid())
	require.Len(t, Methods(), 4)
}
