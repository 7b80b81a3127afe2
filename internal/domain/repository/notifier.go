package repository

import (
	"context"

	"appforge/internal/domain/entity"
)

// Notifier delivers status mails. Implementations swallow delivery errors.
type Notifier interface {
	Notify(ctx context.Context, n entity.Notification)
}
