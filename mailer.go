package drive

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// SMTPMailer delivers messages through an external SMTP transport
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer connects the mailer to the transport described in cfg
func NewSMTPMailer(cfg MailConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to configure mail transport")
	}

	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: defLogger{},
	}, nil
}

func (m *SMTPMailer) WithLogger(l Logger) *SMTPMailer {
	m.logger = l
	return m
}

// Send delivers the message, failing the whole dispatch when any
// recipient is rejected. Rejected addresses travel in the error metadata.
func (m *SMTPMailer) Send(ctx context.Context, msg *MailMessage) error {
	message := mail.NewMsg()

	if err := message.From(m.from); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "invalid sender address").
			WithMetadata(map[string]any{"from": m.from})
	}

	var rejected []string
	for _, to := range msg.To {
		if err := message.AddTo(to); err != nil {
			rejected = append(rejected, to)
		}
	}
	if len(rejected) > 0 {
		return NewDeliveryError(rejected, errors.New("recipient address rejected", errors.CategoryValidation))
	}

	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		message.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := m.client.DialAndSendWithContext(ctx, message); err != nil {
		m.logger.Error("mail dispatch failed", "to", msg.To, "error", err)
		// the transport refused the message; every recipient counts as rejected
		return NewDeliveryError(msg.To, err)
	}

	return nil
}
