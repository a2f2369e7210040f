// Package romaneio cierra un carrito: lo envía al backend como movimientos
// de salida con un identificador de lote común y permite rearmar los
// documentos de lotes anteriores.
package romaneio

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var batchIDPattern = regexp.MustCompile(`^ROM-\d+-[A-Z0-9]{6}$`)

// NewBatchID genera ROM-<unix ms>-<6 caracteres alfanuméricos en mayúscula>
func NewBatchID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return "ROM-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

func IsBatchID(s string) bool {
	return batchIDPattern.MatchString(s)
}
