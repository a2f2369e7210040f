// Package scanner separa las ráfagas de un lector de códigos de barras
// (teclado HID) de la escritura humana.
package scanner

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultMaxKeyGap = 50 * time.Millisecond
	DefaultMinLength = 3

	KeyEnter = "Enter"
)

// Targets de tipo campo de texto: las teclas dirigidas a ellos se ignoran
var textInputTargets = map[string]bool{
	"text":     true,
	"search":   true,
	"textarea": true,
	"email":    true,
	"password": true,
	"number":   true,
	"tel":      true,
	"url":      true,
}

// KeyEvent tecla reenviada por la vista. Target es el tipo del elemento
// enfocado ("" o "body" cuando no hay campo enfocado).
type KeyEvent struct {
	Key    string    `json:"key"`
	Target string    `json:"target,omitempty"`
	At     time.Time `json:"-"`
}

// IsTextInput indica si target es un campo donde el usuario está escribiendo
func IsTextInput(target string) bool {
	return textInputTargets[strings.ToLower(strings.TrimSpace(target))]
}

// Filter acumula teclas y emite un código cuando llega Enter tras una
// ráfaga suficientemente rápida y larga. Cada conexión tiene el suyo.
type Filter struct {
	mu        sync.Mutex
	maxGap    time.Duration
	minLength int
	now       func() time.Time

	buf     []rune
	lastKey time.Time
}

type Option func(*Filter)

// WithClock reemplaza la fuente de tiempo (tests)
func WithClock(now func() time.Time) Option {
	return func(f *Filter) { f.now = now }
}

func WithMaxKeyGap(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.maxGap = d
		}
	}
}

// WithMinLength fija el largo mínimo: se emite con más de n caracteres
func WithMinLength(n int) Option {
	return func(f *Filter) {
		if n >= 0 {
			f.minLength = n
		}
	}
}

func NewFilter(opts ...Option) *Filter {
	f := &Filter{
		maxGap:    DefaultMaxKeyGap,
		minLength: DefaultMinLength,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.lastKey = f.now()
	return f
}

// Feed procesa una tecla. Devuelve el código y true cuando la tecla
// completa un escaneo.
func (f *Filter) Feed(ev KeyEvent) (string, bool) {
	if IsTextInput(ev.Target) {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	at := ev.At
	if at.IsZero() {
		at = f.now()
	}

	if at.Sub(f.lastKey) > f.maxGap {
		f.buf = f.buf[:0]
	}
	defer func() { f.lastKey = at }()

	if ev.Key == KeyEnter {
		if len(f.buf) > f.minLength {
			code := string(f.buf)
			f.buf = f.buf[:0]
			return code, true
		}
		f.buf = f.buf[:0]
		return "", false
	}

	if utf8.RuneCountInString(ev.Key) == 1 {
		r, _ := utf8.DecodeRuneInString(ev.Key)
		f.buf = append(f.buf, r)
	}
	return "", false
}
