package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pesoPrinter = message.NewPrinter(language.MustParse("es-CO"))

// FormatPesos renders a whole-peso amount the way the storefront shows it,
// e.g. $1.300.000.
func FormatPesos(amount int64) string {
	return pesoPrinter.Sprintf("$%d", amount)
}
