package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tasklive/internal/realtime"
)

// Notifier holds LISTEN subscriptions on a dedicated pooled connection.
type Notifier struct {
	pool *pgxpool.Pool
}

func NewNotifier(pool *pgxpool.Pool) *Notifier {
	return &Notifier{pool: pool}
}

// Listen acquires one connection, subscribes to every channel and delivers
// notifications to fn until ctx is done or the connection fails. The
// connection is destroyed on return so no pooled session keeps the LISTENs.
func (n *Notifier) Listen(ctx context.Context, channels []string, fn func(realtime.Notification)) error {
	conn, err := n.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres.Notifier.Listen: acquire: %w", err)
	}
	defer conn.Release()
	defer func() { _ = conn.Conn().Close(context.Background()) }()

	for _, ch := range channels {
		_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize())
		if err != nil {
			return fmt.Errorf("postgres.Notifier.Listen: listen %s: %w", ch, err)
		}
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("postgres.Notifier.Listen: wait: %w", err)
		}
		fn(realtime.Notification{Channel: notification.Channel, Payload: notification.Payload})
	}
}
