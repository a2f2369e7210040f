// Package cart agrega las lecturas de una estación en líneas de romaneio.
package cart

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"romaneio-service/internal/models"
)

var (
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Cart líneas ordenadas, la más reciente primero, como máximo una por producto.
// Es seguro para uso concurrente.
type Cart struct {
	mu    sync.Mutex
	items []models.CartItem
}

func New() *Cart {
	return &Cart{}
}

// Add suma una unidad a la línea del producto o crea una nueva al frente
// con una copia de nombre, código, unidad y precio.
func (c *Cart) Add(p models.Product) models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(p.ID); i >= 0 {
		c.items[i].Quantity++
		return c.items[i]
	}

	var barcode *string
	if p.Barcode != nil {
		b := *p.Barcode
		barcode = &b
	}
	item := models.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Barcode:   barcode,
		Unit:      p.Unit,
		Quantity:  1,
		UnitPrice: p.Price,
	}
	c.items = append([]models.CartItem{item}, c.items...)
	return item
}

// SetQuantity aplica el valor crudo del campo de cantidad. Valores no
// numéricos o negativos no cambian nada; en unidades enteras se trunca.
// Un cero queda guardado hasta CommitQuantityEdit.
func (c *Cart) SetQuantity(productID int, raw string) (models.CartItem, error) {
	q, err := parseQuantity(raw)
	if err != nil {
		return models.CartItem{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return models.CartItem{}, ErrItemNotFound
	}
	c.items[i].Quantity = normalize(q, c.items[i].Unit)
	return c.items[i], nil
}

// Increment suma delta (control +/-). Si el resultado no es positivo la línea se elimina.
func (c *Cart) Increment(productID int, delta float64) (removed bool, err error) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return false, ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return false, ErrItemNotFound
	}
	q := normalize(c.items[i].Quantity+delta, c.items[i].Unit)
	if q <= 0 {
		c.removeAt(i)
		return true, nil
	}
	c.items[i].Quantity = q
	return false, nil
}

// CommitQuantityEdit se llama al salir del campo: cantidades no positivas eliminan la línea
func (c *Cart) CommitQuantityEdit(productID int) (removed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return false, ErrItemNotFound
	}
	q := c.items[i].Quantity
	if q <= 0 || math.IsNaN(q) {
		c.removeAt(i)
		return true, nil
	}
	return false, nil
}

// Prune elimina las líneas con cantidad no positiva que quedaron sin
// confirmar y devuelve cuántas sacó
func (c *Cart) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, it := range c.items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	removed := len(c.items) - len(kept)
	c.items = kept
	return removed
}

func (c *Cart) Remove(productID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Items devuelve una copia de las líneas
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cart) Totals() models.CartTotals {
	return models.TotalsOf(c.Items())
}

func (c *Cart) indexOf(productID int) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// parseQuantity acepta punto o coma decimal
func parseQuantity(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	s = strings.Replace(s, ",", ".", 1)
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, ErrInvalidQuantity
	}
	return q, nil
}
