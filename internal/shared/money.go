package shared

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultVATRate is the flat VAT (IVA) rate applied to VAT-responsible branches.
const DefaultVATRate = 0.19

// VAT returns round-half-up(base * rate) in whole currency units.
func VAT(base int64, rate float64) int64 {
	if base <= 0 || rate <= 0 {
		return 0
	}
	return int64(math.Floor(float64(base)*rate + 0.5))
}

// BranchVAT applies VAT only when the branch is VAT-responsible.
func BranchVAT(base int64, rate float64, vatResponsible bool) int64 {
	if !vatResponsible {
		return 0
	}
	return VAT(base, rate)
}

// MoneyFormatter renders whole-unit amounts with locale digit grouping.
type MoneyFormatter struct {
	printer *message.Printer
}

// NewMoneyFormatter builds a formatter for the BCP 47 locale tag. Unknown tags fall back to Spanish.
func NewMoneyFormatter(locale string) MoneyFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return MoneyFormatter{printer: message.NewPrinter(tag)}
}

// Format renders the amount prefixed with the currency sign.
func (f MoneyFormatter) Format(amount int64) string {
	if f.printer == nil {
		f.printer = message.NewPrinter(language.Spanish)
	}
	if amount < 0 {
		return f.printer.Sprintf("-$%d", -amount)
	}
	return f.printer.Sprintf("$%d", amount)
}
