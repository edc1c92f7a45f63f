package utils

import (
	"context"
	"time"
)

// Retry ejecuta fn hasta attempts veces con una pausa fija entre intentos.
// Devuelve nil al primer éxito y el último error si se agotan los intentos.
// No hay pausa tras el último intento, y un contexto cancelado corta la
// espera con ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
