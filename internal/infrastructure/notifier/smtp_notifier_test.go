package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"appforge/app/config"
	"appforge/internal/domain/entity"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completeConfig() config.MailConfig {
	return config.MailConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "bot",
		Password: "secret",
		Sender:   "bot@example.com",
	}
}

func TestNotifySkipsWhenIncomplete(t *testing.T) {
	cfg := completeConfig()
	cfg.Password = ""
	n := NewSMTPNotifier(cfg, discard())

	called := false
	n.send = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	n.Notify(context.Background(), entity.Notification{Recipient: "a@b.com", Subject: "s", HTMLBody: "<p>b</p>"})
	assert.False(t, called)
}

func TestNotifyBuildsHTMLMessage(t *testing.T) {
	n := NewSMTPNotifier(completeConfig(), discard())

	var sent *mail.Msg
	n.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	n.Notify(context.Background(), entity.Notification{Recipient: "a@b.com", Subject: "Done", HTMLBody: "<p>ok</p>"})
	require.NotNil(t, sent)

	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, rcpts)
	assert.Equal(t, []string{"Done"}, sent.GetGenHeader(mail.HeaderSubject))
}

func TestNotifySwallowsDeliveryErrors(t *testing.T) {
	n := NewSMTPNotifier(completeConfig(), discard())
	n.send = func(context.Context, *mail.Msg) error {
		return errors.New("connection refused")
	}

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), entity.Notification{Recipient: "a@b.com", Subject: "s"})
	})
}

func TestNotifySwallowsBadRecipient(t *testing.T) {
	n := NewSMTPNotifier(completeConfig(), discard())
	called := false
	n.send = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	n.Notify(context.Background(), entity.Notification{Recipient: "not an address", Subject: "s"})
	assert.False(t, called)
}
