package export

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const DateLayout = "02/01/2006, 15:04:05"

// FormatBRL formatea en reais con separadores pt-BR: R$ 1.234,50
func FormatBRL(v float64) string {
	p := message.NewPrinter(language.BrazilianPortuguese)
	// se redondea antes de mirar el signo: -0,001 es R$ 0,00
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // descarta el cero negativo
	}
	if v < 0 {
		return "-R$ " + p.Sprintf("%.2f", math.Abs(v))
	}
	return "R$ " + p.Sprintf("%.2f", v)
}

// FormatQuantity imprime la cantidad sin ceros de relleno (2, 2.5, 0.125)
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func customerOr(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}
