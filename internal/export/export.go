// Package export genera los documentos de un romaneio: mensaje de texto
// para WhatsApp, hoja A4 y comprobante térmico de 80mm.
package export

import (
	"fmt"

	"romaneio-service/internal/models"
)

type Format string

const (
	FormatText     Format = "text"
	FormatWhatsApp Format = "whatsapp"
	FormatA4       Format = "a4"
	FormatThermal  Format = "thermal"
)

// Rendered documento listo para entregar a la vista
type Rendered struct {
	ContentType string
	Body        string
}

// Render genera doc en el formato pedido; "" equivale a texto
func Render(doc models.Document, format Format) (*Rendered, error) {
	switch format {
	case FormatText, "":
		return &Rendered{ContentType: "text/plain; charset=utf-8", Body: Text(doc)}, nil
	case FormatWhatsApp:
		return &Rendered{ContentType: "text/plain; charset=utf-8", Body: WhatsAppURL(doc)}, nil
	case FormatA4:
		body, err := A4HTML(doc)
		if err != nil {
			return nil, err
		}
		return &Rendered{ContentType: "text/html; charset=utf-8", Body: body}, nil
	case FormatThermal:
		body, err := ThermalHTML(doc)
		if err != nil {
			return nil, err
		}
		return &Rendered{ContentType: "text/html; charset=utf-8", Body: body}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
