package pricing

import (
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencyPrefix is prepended to every formatted amount.
const CurrencyPrefix = "$"

// ParsePrice coerces a stored price into a decimal. A comma is read as the
// decimal separator, in which case dots are thousands separators. Blank or
// malformed input yields zero.
func ParsePrice(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, CurrencyPrefix)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatARS renders an amount with Argentine grouping, e.g. $3.500,00.
func FormatARS(d decimal.Decimal) string {
	v := d.Round(2).InexactFloat64()
	if v < 0 {
		return "-" + CurrencyPrefix + humanize.FormatFloat("#.###,##", -v)
	}
	return CurrencyPrefix + humanize.FormatFloat("#.###,##", v)
}
