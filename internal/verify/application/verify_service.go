package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
)

// SendResult es el desenlace de una petición de envío de código.
type SendResult struct {
	Sent        bool
	RateLimited bool
	WaitMinutes int
}

// VerifyService emite y comprueba códigos de verificación por SMS,
// con el limitador de ventana deslizante por delante del transporte.
type VerifyService struct {
	limiter  *domain.Limiter
	codes    domain.CodeStore
	sender   domain.SMSSender // nil si el proveedor no está configurado
	attempts domain.AttemptRepository
	log      *zap.Logger
}

func NewVerifyService(
	limiter *domain.Limiter,
	codes domain.CodeStore,
	sender domain.SMSSender,
	attempts domain.AttemptRepository,
	log *zap.Logger,
) *VerifyService {
	return &VerifyService{
		limiter:  limiter,
		codes:    codes,
		sender:   sender,
		attempts: attempts,
		log:      log,
	}
}

// Send emite un código de 6 dígitos hacia el número dado.
// El limitador sella la ventana en la admisión: un fallo posterior del
// transporte también la consume (semántica heredada y deliberada).
func (s *VerifyService) Send(ctx context.Context, to, channel string) (*SendResult, error) {
	if s.sender == nil {
		return nil, domain.ErrTransportUnavailable
	}

	decision, err := s.limiter.Check(ctx, to)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		s.audit(ctx, to, channel, "rate-limited")
		return &SendResult{RateLimited: true, WaitMinutes: decision.WaitMinutes}, nil
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	if err := s.codes.PutCode(ctx, to, code, domain.CodeTTL); err != nil {
		return nil, err
	}

	if err := s.sender.SendCode(ctx, to, code); err != nil {
		s.audit(ctx, to, channel, "failed")
		s.log.Error("Envío de código fallido", zap.String("to", to), zap.Error(err))
		return nil, err
	}

	s.audit(ctx, to, channel, "sent")
	return &SendResult{Sent: true}, nil
}

// Check comprueba el código contra el emitido. El código es de un solo uso:
// un código ausente, caducado o equivocado devuelve ErrCodeMismatch.
func (s *VerifyService) Check(ctx context.Context, to, code string) error {
	ok, err := s.codes.ConsumeCode(ctx, to, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrCodeMismatch
	}
	return nil
}

func (s *VerifyService) audit(ctx context.Context, to, channel, status string) {
	if s.attempts == nil {
		return
	}
	a := domain.Attempt{
		To:        to,
		Channel:   channel,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if err := s.attempts.SaveAttempt(ctx, a); err != nil {
		s.log.Warn("⚠️ No se pudo auditar el intento", zap.String("to", to), zap.Error(err))
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
