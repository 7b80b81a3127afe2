package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"appforge/app/config"
	"appforge/internal/domain/entity"
	"appforge/internal/domain/repository"
	"appforge/internal/infrastructure/metrics"
)

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPNotifier mails HTML status messages through an authenticated relay
// using STARTTLS.
type SMTPNotifier struct {
	cfg    config.MailConfig
	send   sendFunc
	logger *slog.Logger
}

var _ repository.Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(cfg config.MailConfig, logger *slog.Logger) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, logger: logger}
	n.send = n.dialAndSend
	return n
}

// Notify never returns an error. Failures are logged and counted.
func (n *SMTPNotifier) Notify(ctx context.Context, notification entity.Notification) {
	if !n.cfg.Complete() {
		metrics.IncNotification("skipped")
		n.logger.Warn("mail relay not configured, skipping notification",
			"recipient", notification.Recipient, "subject", notification.Subject)
		return
	}

	msg, err := n.buildMessage(notification)
	if err != nil {
		metrics.IncNotification("failed")
		metrics.IncError("notifier", "build_message")
		n.logger.Error("failed to build mail", "recipient", notification.Recipient, "err", err)
		return
	}

	if err := n.send(ctx, msg); err != nil {
		metrics.IncNotification("failed")
		metrics.IncError("notifier", "send")
		n.logger.Error("failed to send mail", "recipient", notification.Recipient, "err", err)
		return
	}

	metrics.IncNotification("sent")
	n.logger.Info("notification sent", "recipient", notification.Recipient, "subject", notification.Subject)
}

func (n *SMTPNotifier) buildMessage(notification entity.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(notification.Recipient); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(notification.Subject)
	msg.SetBodyString(mail.TypeTextHTML, notification.HTMLBody)
	return msg, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Username),
		mail.WithPassword(n.cfg.Password),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("deliver via %s:%d: %w", n.cfg.Host, n.cfg.Port, err)
	}
	return nil
}
