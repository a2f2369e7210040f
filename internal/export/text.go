package export

import (
	"fmt"
	"net/url"
	"strings"

	"romaneio-service/internal/models"
)

const whatsAppBaseURL = "https://wa.me/?text="

// Text arma el mensaje para WhatsApp con el formato *negrita* de la app
func Text(doc models.Document) string {
	var b strings.Builder
	totals := doc.Totals()

	b.WriteString("📦 *ROMANEIO RÁPIDO*\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", customerOr(doc.CustomerName, "Não informado"))
	fmt.Fprintf(&b, "📅 *Data:* %s\n\n", doc.Timestamp.Format(DateLayout))
	b.WriteString("*ITENS DO PEDIDO:*\n")

	for i, it := range doc.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it.Name)
		qty := FormatQuantity(it.Quantity)
		if unit := strings.TrimSpace(it.Unit); unit != "" {
			qty += " " + unit
		}
		fmt.Fprintf(&b, "   Qtd: %s | Unit: %s | Sub: %s\n", qty, FormatBRL(it.UnitPrice), FormatBRL(it.Subtotal()))
		if it.Barcode != nil && *it.Barcode != "" {
			fmt.Fprintf(&b, "   Cód: %s\n", *it.Barcode)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "📊 *Total de Itens:* %s\n", FormatQuantity(totals.Quantity))
	fmt.Fprintf(&b, "💰 *Valor Total:* %s\n", FormatBRL(totals.Value))
	b.WriteString("\n_Gerado por RomaneioRapido.com.br_")

	return b.String()
}

// WhatsAppURL link wa.me con el texto codificado como encodeURIComponent
func WhatsAppURL(doc models.Document) string {
	encoded := strings.ReplaceAll(url.QueryEscape(Text(doc)), "+", "%20")
	return whatsAppBaseURL + encoded
}
