package changefeed

import (
	"encoding/json"
	"log/slog"
)

// msgPublisher is the part of *nats.Conn the relay needs.
type msgPublisher interface {
	Publish(subj string, data []byte) error
}

// NATSRelay forwards changes onto a NATS subject so instances running a
// NATSSource see them. It is fed by the instance holding the LISTEN
// connection.
type NATSRelay struct {
	conn    msgPublisher
	subject string
	logger  *slog.Logger
}

// NewNATSRelay creates a relay publishing to subject. conn is usually a
// *nats.Conn.
func NewNATSRelay(conn msgPublisher, subject string, logger *slog.Logger) *NATSRelay {
	return &NATSRelay{
		conn:    conn,
		subject: subject,
		logger:  logger.With("component", "changefeed.relay", "subject", subject),
	}
}

// Publish encodes c and sends it. Failures are logged; the subscribers'
// own reconnect resync covers anything lost.
func (r *NATSRelay) Publish(c Change) {
	data, err := json.Marshal(c)
	if err != nil {
		r.logger.Error("failed to encode change", "error", err)
		return
	}
	if err := r.conn.Publish(r.subject, data); err != nil {
		r.logger.Warn("failed to relay change",
			"table", c.Table,
			"op", c.Op,
			"error", err,
		)
	}
}
