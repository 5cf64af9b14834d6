package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount the way Brazilian documents print it,
// e.g. "R$ 1.234,56" or "-R$ 10,00".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	return fmt.Sprintf("%sR$ %s,%s", sign, groupThousands(intPart), frac)
}

// ParseBRL parses "1.234,56", "-588,74", "R$ 10,00" and the optional
// trailing "C"/"D" credit and debit markers some bank exports add.
func ParseBRL(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "R$")
	clean = strings.TrimSpace(clean)

	negative := false

	switch {
	case strings.HasSuffix(clean, "D"):
		negative = true
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "D"))
	case strings.HasSuffix(clean, "C"):
		clean = strings.TrimSpace(strings.TrimSuffix(clean, "C"))
	}

	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	if negative {
		d = d.Abs().Neg()
	}

	return d, nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var sb strings.Builder

	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}

	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}

		sb.WriteString(digits[i : i+3])
	}

	return sb.String()
}
