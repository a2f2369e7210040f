// Package search implementa la búsqueda mientras se escribe: espera una
// pausa en la escritura y descarta respuestas que llegan fuera de orden.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Func ejecuta la búsqueda real
type Func[T any] func(ctx context.Context, query string) ([]T, error)

// Result respuesta entregada al consumidor. Seq identifica la consulta.
type Result[T any] struct {
	Seq   uint64
	Query string
	Items []T
	Err   error
}

// Debouncer reinicia un temporizador con cada Submit y etiqueta cada
// consulta con un número de secuencia creciente. Una respuesta solo se
// entrega si sigue siendo la consulta más reciente.
type Debouncer[T any] struct {
	delay    time.Duration
	minLen   int
	fn       Func[T]
	deliver  func(Result[T])
	baseCtx  context.Context
	stopBase context.CancelFunc

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
}

// New crea un debouncer. deliver se llama desde otra goroutine.
func New[T any](parent context.Context, delay time.Duration, minLen int, fn Func[T], deliver func(Result[T])) *Debouncer[T] {
	ctx, cancel := context.WithCancel(parent)
	return &Debouncer[T]{
		delay:    delay,
		minLen:   minLen,
		fn:       fn,
		deliver:  deliver,
		baseCtx:  ctx,
		stopBase: cancel,
	}
}

// Submit registra una nueva consulta y devuelve su número de secuencia.
// Las consultas más cortas que el mínimo limpian los resultados sin llamar a fn.
func (d *Debouncer[T]) Submit(query string) uint64 {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}
	d.seq++
	seq := d.seq
	d.stopPendingLocked()

	if utf8.RuneCountInString(query) < d.minLen {
		d.mu.Unlock()
		d.deliver(Result[T]{Seq: seq, Query: query})
		return seq
	}

	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq, query) })
	d.mu.Unlock()
	return seq
}

func (d *Debouncer[T]) fire(seq uint64, query string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.baseCtx)
	d.inflight = cancel
	d.mu.Unlock()

	items, err := d.fn(ctx, query)
	cancel()

	d.mu.Lock()
	stale := d.closed || seq != d.seq
	d.mu.Unlock()
	if stale {
		return
	}
	d.deliver(Result[T]{Seq: seq, Query: query, Items: items, Err: err})
}

// Close detiene el temporizador y cancela la búsqueda en curso
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.stopPendingLocked()
	d.mu.Unlock()
	d.stopBase()
}

func (d *Debouncer[T]) stopPendingLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.inflight != nil {
		d.inflight()
		d.inflight = nil
	}
}
