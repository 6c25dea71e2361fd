package mailer

import (
	"context"

	"github.com/wneessen/go-mail"

	"mcp-insight-service/pkg/config"
	"mcp-insight-service/pkg/errors"
)

// implicitTLSPort is the SMTPS submission port
const implicitTLSPort = 465

// Sender delivers an email
type Sender interface {
	Send(ctx context.Context, msg *EmailMessage) error
}

// SMTPSender submits messages to an SMTP relay with PLAIN auth over TLS
type SMTPSender struct {
	cfg config.MailConfig
}

// NewSMTPSender creates a sender for the relay described by cfg
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send opens a connection, submits msg and closes the connection
func (s *SMTPSender) Send(ctx context.Context, msg *EmailMessage) error {
	if msg.From == "" {
		msg.From = s.cfg.From
	}

	m, err := BuildMessage(msg)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidArguments, "failed to build email", err)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return errors.NewExternalServiceError(errors.ErrCodeMailSendFailed, "failed to create SMTP client", err).
			WithContext("host", s.cfg.Host)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.NewExternalServiceError(errors.ErrCodeMailSendFailed, "failed to send email", err).
			WithContext("host", s.cfg.Host).
			WithContext("port", s.cfg.Port)
	}
	return nil
}

type guardedSender struct {
	next    Sender
	breaker *errors.CircuitBreaker
}

// WithCircuitBreaker routes every send through breaker
func WithCircuitBreaker(s Sender, breaker *errors.CircuitBreaker) Sender {
	return &guardedSender{next: s, breaker: breaker}
}

func (g *guardedSender) Send(ctx context.Context, msg *EmailMessage) error {
	return g.breaker.Execute(func() error {
		return g.next.Send(ctx, msg)
	})
}
