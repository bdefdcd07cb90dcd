package changefeed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSource subscribes to a NATS subject carrying JSON Change messages.
// Use it when several app instances share one database and changes are
// relayed over NATS instead of each instance holding a LISTEN connection.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSSource creates a source on subject using an established connection.
func NewNATSSource(conn *nats.Conn, subject string, logger *slog.Logger) *NATSSource {
	return &NATSSource{
		conn:    conn,
		subject: subject,
		logger:  logger.With("component", "changefeed.nats", "subject", subject),
	}
}

// Run blocks until ctx is cancelled. Messages published while the
// connection was down are lost, so a reconnect publishes OpResync.
func (s *NATSSource) Run(ctx context.Context, out Publisher) error {
	s.conn.SetReconnectHandler(s.reconnected(out))
	sub, err := s.conn.Subscribe(s.subject, s.handler(out))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Debug("unsubscribe failed", "error", err)
		}
	}()

	s.logger.Info("change subscription started")
	<-ctx.Done()
	return nil
}

func (s *NATSSource) handler(out Publisher) nats.MsgHandler {
	return func(msg *nats.Msg) {
		change, err := decodeChange(msg.Data)
		if err != nil {
			s.logger.Warn("dropping malformed change message", "error", err)
			return
		}
		out.Publish(change)
	}
}

func (s *NATSSource) reconnected(out Publisher) nats.ConnHandler {
	return func(*nats.Conn) {
		s.logger.Warn("nats connection re-established, requesting resync")
		out.Publish(Change{Op: OpResync})
	}
}
