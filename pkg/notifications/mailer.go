package notifications

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/techmatters/terraso-go/pkg/config"
)

// Message is one email to one or more recipients.
type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msgs ...*Message) error
}

// SMTPMailer sends through the configured SMTP relay.
type SMTPMailer struct {
	from   string
	host   string
	opts   []mail.Option
	dialer func(host string, opts ...mail.Option) (*mail.Client, error)
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg *config.TerrasoConfig) *SMTPMailer {
	opts := []mail.Option{
		mail.WithPort(cfg.EmailPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.EmailHostUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.EmailHostUser),
			mail.WithPassword(cfg.EmailHostPassword),
		)
	}
	return &SMTPMailer{from: cfg.DefaultFromEmail, host: cfg.EmailHost, opts: opts, dialer: mail.NewClient}
}

func (m *SMTPMailer) build(msg *Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		out.AddAlternativeString(mail.TypeTextPlain, msg.Text)
	}
	return out, nil
}

// Send delivers all messages over one connection.
func (m *SMTPMailer) Send(ctx context.Context, msgs ...*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if m.host == "" {
		return fmt.Errorf("email host is not configured")
	}
	built := make([]*mail.Msg, 0, len(msgs))
	for _, msg := range msgs {
		b, err := m.build(msg)
		if err != nil {
			return err
		}
		built = append(built, b)
	}
	client, err := m.dialer(m.host, m.opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, built...)
}
