package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Source feeds changes into a Publisher until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, out Publisher) error
}

// PostgresSource listens on a Postgres NOTIFY channel.
//
// The shift_changes trigger publishes a JSON Change payload for every
// insert, update and delete on the shifts table.
type PostgresSource struct {
	dsn     string
	channel string
	logger  *slog.Logger

	minReconnect time.Duration
	maxReconnect time.Duration
	pingInterval time.Duration
}

// NewPostgresSource creates a source listening on channel.
func NewPostgresSource(dsn, channel string, logger *slog.Logger) *PostgresSource {
	return &PostgresSource{
		dsn:          dsn,
		channel:      channel,
		logger:       logger.With("component", "changefeed.postgres", "channel", channel),
		minReconnect: 2 * time.Second,
		maxReconnect: time.Minute,
		pingInterval: 90 * time.Second,
	}
}

// Run blocks until ctx is cancelled or the listener cannot be established.
func (s *PostgresSource) Run(ctx context.Context, out Publisher) error {
	listener := pq.NewListener(s.dsn, s.minReconnect, s.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			s.logger.Info("change listener connected")
		case pq.ListenerEventDisconnected:
			s.logger.Warn("change listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			s.logger.Info("change listener reconnected")
		case pq.ListenerEventConnectionAttemptFailed:
			s.logger.Warn("change listener connection attempt failed", "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(s.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.channel, err)
	}

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case n := <-listener.Notify:
			// pq sends nil after re-establishing a lost connection.
			if n == nil {
				out.Publish(Change{Op: OpResync})
				continue
			}
			change, err := decodeChange([]byte(n.Extra))
			if err != nil {
				s.logger.Warn("dropping malformed change notification", "payload", n.Extra, "error", err)
				continue
			}
			out.Publish(change)

		case <-ping.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.logger.Debug("change listener ping failed", "error", err)
				}
			}()
		}
	}
}

func decodeChange(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, err
	}
	if c.Op == OpResync {
		return c, nil
	}
	if c.Table == "" || c.Op == "" {
		return Change{}, fmt.Errorf("change is missing table or op")
	}
	return c, nil
}
