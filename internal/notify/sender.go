package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"campus-notice/internal/core/config"
)

// SMTPSender delivers mail over SMTP with opportunistic STARTTLS.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(c config.Mail) *SMTPSender {
	return &SMTPSender{host: c.Host, port: c.Port, username: c.Username, password: c.Password, from: c.From}
}

func (s *SMTPSender) message(m Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	from := m.From
	if from == "" {
		from = s.from
	}
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from %q: %w", from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.To, err)
	}
	if m.ReplyTo != "" {
		if err := msg.ReplyTo(m.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to %q: %w", m.ReplyTo, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	return msg, nil
}

func (s *SMTPSender) Send(ctx context.Context, m Mail) error {
	msg, err := s.message(m)
	if err != nil {
		return err
	}
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}
	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogSender only logs the mail; used when no SMTP host is configured.
type LogSender struct{ log *zap.Logger }

func NewLogSender(l *zap.Logger) *LogSender { return &LogSender{log: l} }

func (s *LogSender) Send(_ context.Context, m Mail) error {
	s.log.Info("mail (log sender)",
		zap.String("mailId", m.ID),
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.Int("bytes", len(m.HTML)),
	)
	return nil
}

// NewSender picks SMTP when a host is configured.
func NewSender(c config.Mail, l *zap.Logger) Sender {
	if c.Host == "" {
		return NewLogSender(l)
	}
	return NewSMTPSender(c)
}
