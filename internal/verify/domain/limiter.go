package domain

import (
	"context"
	"math"
	"time"
)

// Window es la ventana deslizante de los envíos de verificación.
const Window = 10 * time.Minute

// Decision es el veredicto del limitador para una clave.
type Decision struct {
	Allowed     bool
	WaitMinutes int
}

// WindowStore guarda el último envío por clave. La implementación en
// memoria vale para un proceso; con varias instancias hay que usar la de
// Redis, que comparte estado.
type WindowStore interface {
	// LastSent devuelve el último sello de la clave; ok=false si no hay.
	LastSent(ctx context.Context, key string) (time.Time, bool, error)

	// SetLastSent sella la clave con el instante dado.
	SetLastSent(ctx context.Context, key string, at time.Time) error
}

// Limiter aplica la ventana deslizante sobre una clave (número de teléfono).
type Limiter struct {
	store  WindowStore
	window time.Duration
	now    func() time.Time
}

func NewLimiter(store WindowStore) *Limiter {
	return &Limiter{store: store, window: Window, now: time.Now}
}

// NewLimiterWithClock permite inyectar el reloj en tests.
func NewLimiterWithClock(store WindowStore, window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{store: store, window: window, now: now}
}

// Check admite o rechaza la clave. Al admitir, el sello se actualiza en el
// acto, NO tras el envío: dos peticiones concurrentes de la misma clave no
// pueden colarse por la ventana, a cambio de que un envío fallido también
// la consuma.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	last, ok, err := l.store.LastSent(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if ok {
		elapsed := now.Sub(last)
		if elapsed < l.window {
			remaining := l.window - elapsed
			wait := int(math.Ceil(remaining.Minutes()))
			if wait < 1 {
				wait = 1
			}
			return Decision{Allowed: false, WaitMinutes: wait}, nil
		}
	}

	if err := l.store.SetLastSent(ctx, key, now); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true}, nil
}
