package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"romaneio-service/internal/models"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

type lineView struct {
	Name      string
	Quantity  string
	Unit      string
	UnitPrice string
	Subtotal  string
	Barcode   string
}

type documentView struct {
	Customer   string
	Date       string
	BatchID    string
	Items      []lineView
	TotalItems string
	TotalValue string
}

func newDocumentView(doc models.Document) documentView {
	totals := doc.Totals()
	view := documentView{
		Customer:   customerOr(doc.CustomerName, "N/A"),
		Date:       doc.Timestamp.Format(DateLayout),
		BatchID:    doc.BatchID,
		TotalItems: FormatQuantity(totals.Quantity),
		TotalValue: FormatBRL(totals.Value),
	}
	for _, it := range doc.Items {
		unit := strings.TrimSpace(it.Unit)
		if unit == "" {
			unit = "—"
		}
		barcode := ""
		if it.Barcode != nil {
			barcode = *it.Barcode
		}
		view.Items = append(view.Items, lineView{
			Name:      it.Name,
			Quantity:  FormatQuantity(it.Quantity),
			Unit:      unit,
			UnitPrice: FormatBRL(it.UnitPrice),
			Subtotal:  FormatBRL(it.Subtotal()),
			Barcode:   barcode,
		})
	}
	return view
}

// A4HTML documento de romaneio para hoja A4 con casilla de conferencia por línea
func A4HTML(doc models.Document) (string, error) {
	return render("a4.html.tmpl", doc)
}

// ThermalHTML comprobante angosto para bobina de 80mm
func ThermalHTML(doc models.Document) (string, error) {
	return render("thermal.html.tmpl", doc)
}

func render(name string, doc models.Document) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, newDocumentView(doc)); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
