package worker

// email_worker.go
// Processes QueueEmail: welcome mail with the loyalty card link. SMTP calls
// go through the circuit breaker so a dead server fails fast.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"

	"github.com/rs/zerolog/log"
)

// WelcomeSender delivers the welcome mail. *infra.Mailer implements it.
type WelcomeSender interface {
	SendWelcome(to, name, qrLink string) error
}

type EmailWorker struct {
	sender WelcomeSender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(sender WelcomeSender, cb *infra.CircuitBreaker) *EmailWorker {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultCBConfig())
	}
	return &EmailWorker{sender: sender, cb: cb}
}

// Process sends the welcome mail of one registered client.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var job dto.WelcomeEmailJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %w", err)
	}
	if job.Email == "" {
		log.Warn().Str("client_id", job.ClientID).Msg("email_worker: cliente sin email, se omite")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.sender.SendWelcome(job.Email, job.Name, job.QRLink)
	})
	if err != nil {
		log.Error().Err(err).Str("client_id", job.ClientID).Str("cb", w.cb.State().String()).Msg("email_worker: envío fallido")
		return err
	}
	log.Info().Str("client_id", job.ClientID).Msg("email_worker: bienvenida enviada")
	return nil
}
