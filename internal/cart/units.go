package cart

import (
	"math"
	"strings"
)

// Unidades que se cuentan en enteros; el resto (KG, M, L, M2...) admite fracción
var integerUnits = map[string]bool{
	"UN":  true,
	"PCT": true,
	"CX":  true,
	"CXS": true,
	"FD":  true,
	"KIT": true,
	"PC":  true,
	"DZ":  true,
}

// IsIntegerUnit compara sin distinguir mayúsculas y sin espacios
func IsIntegerUnit(unit string) bool {
	return integerUnits[strings.ToUpper(strings.TrimSpace(unit))]
}

// normalize aplica la regla de la unidad a una cantidad
func normalize(q float64, unit string) float64 {
	if IsIntegerUnit(unit) {
		return math.Floor(q)
	}
	return q
}
