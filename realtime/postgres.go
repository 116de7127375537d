package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"campusparking/logger"
)

// PostgresListener 以 LISTEN/NOTIFY 接收資料庫 trigger 發出的變更，只能訂閱不能發佈
type PostgresListener struct {
	dsn     string
	channel string
}

func NewPostgresListener(dsn, channel string) *PostgresListener {
	return &PostgresListener{dsn: dsn, channel: channel}
}

func (l *PostgresListener) Subscribe(ctx context.Context) (Subscription, error) {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	log := logger.FromContext(ctx)
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan ChangeEvent, subscriptionBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		defer func() {
			closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelClose()
			_ = conn.Close(closeCtx)
		}()
		for {
			n, err := conn.WaitForNotification(subCtx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Error("Change listener stopped", "channel", l.channel, "error", err)
				}
				return
			}
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
				log.Warn("Dropping malformed notification", "channel", l.channel, "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &pgSubscription{cancel: cancel, done: done, events: out}, nil
}

type pgSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	events <-chan ChangeEvent
	once   sync.Once
}

func (s *pgSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *pgSubscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
