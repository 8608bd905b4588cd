package queue

import (
	"fmt"
	"time"

	"github.com/ghaleb-d/sol-transfer/internal/domain"
	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"github.com/nats-io/nats.go"
)

// EventSubject is where transfer events are published
const EventSubject = "transfers.events"

// NATSClient wraps the NATS connection used for transfer notifications
type NATSClient struct {
	conn *nats.Conn
}

// NewNATSClient creates a new NATS client
func NewNATSClient(url string) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name("sol-transfer"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				telemetry.Logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			telemetry.Logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSClient{conn: conn}, nil
}

// GetConn returns the underlying NATS connection
func (c *NATSClient) GetConn() *nats.Conn {
	return c.conn
}

// Close drains and closes the NATS connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Drain()
		c.conn.Close()
	}
}

// Publisher is the subset of *nats.Conn the notifier needs
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventNotifier forwards transfer events to subscribers. Delivery is best
// effort: a failed publish is logged and never changes a transfer outcome.
type EventNotifier struct {
	pub     Publisher
	subject string
}

// NewEventNotifier creates a notifier publishing on EventSubject
func NewEventNotifier(pub Publisher) *EventNotifier {
	return &EventNotifier{pub: pub, subject: EventSubject}
}

// HandleEvent serializes and publishes one event
func (n *EventNotifier) HandleEvent(event domain.Event) {
	data, err := domain.SerializeEvent(event)
	if err != nil {
		telemetry.Logger.Error("failed to serialize event", "type", event.GetType(), "error", err)
		telemetry.EventsPublishedTotal.WithLabelValues(event.GetType(), "error").Inc()
		return
	}

	if err := n.pub.Publish(n.subject, data); err != nil {
		telemetry.Logger.Warn("failed to publish event",
			"type", event.GetType(),
			"transfer_id", event.GetTransferID(),
			"error", err,
		)
		telemetry.EventsPublishedTotal.WithLabelValues(event.GetType(), "error").Inc()
		return
	}

	telemetry.EventsPublishedTotal.WithLabelValues(event.GetType(), "ok").Inc()
}
