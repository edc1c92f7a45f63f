package relay

import (
	"sync"

	sharedEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/domain/events"
)

// RingBuffer guarda los N eventos más recientes para los observadores en
// vivo. Es estado de proceso: con varias instancias cada una ve solo lo suyo.
type RingBuffer struct {
	mu   sync.RWMutex
	buf  []sharedEvents.Envelope
	next int
	full bool
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{buf: make([]sharedEvents.Envelope, size)}
}

// Append añade un evento, desplazando el más antiguo si el buffer está lleno.
func (r *RingBuffer) Append(env sharedEvents.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = env
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// Snapshot devuelve los eventos en orden de llegada, el más antiguo primero.
func (r *RingBuffer) Snapshot() []sharedEvents.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]sharedEvents.Envelope, r.next)
		copy(out, r.buf[:r.next])
		return out
	}

	out := make([]sharedEvents.Envelope, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}

// Len devuelve cuántos eventos hay almacenados.
func (r *RingBuffer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.buf)
	}
	return r.next
}
