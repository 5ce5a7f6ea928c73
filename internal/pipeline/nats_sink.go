package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/meridian-chain/eventcore/pkg/event"
)

// NATSSink publishes output events to a NATS JetStream stream as their
// canonical JSON record. Committed and read-only events go to separate
// subjects so consumers can follow one identity namespace.
type NATSSink struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	stream    string
	subject   string
	connected bool
}

// NewNATSSink connects to NATS and ensures the event stream exists.
// Events are published on subject and subject+".readonly".
func NewNATSSink(url, stream, subject string) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url, nats.RetryOnFailedConnect(true), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.StreamInfo(stream)
	if err != nil {
		// Stream doesn't exist, create it
		log.Printf("Creating stream %s for subject %s", stream, subject)

		streamConfig := &nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subject, subject + ".readonly"},
			Retention: nats.InterestPolicy,
			Storage:   nats.FileStorage,
			MaxAge:    24 * time.Hour,
			Replicas:  1,
		}

		_, err = js.AddStream(streamConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}

	return &NATSSink{
		conn:      conn,
		js:        js,
		stream:    stream,
		subject:   subject,
		connected: true,
	}, nil
}

// Write publishes one event to JetStream. The message ID is the event's
// checksummed identity, so JetStream-level duplicate detection lines up
// with the identity namespace.
func (s *NATSSink) Write(ctx context.Context, ev *event.OutputEvent) error {
	if !s.connected {
		return fmt.Errorf("NATS connection is closed")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}

	subject := s.subject
	if ev.Context.ReadOnly {
		subject += ".readonly"
	}

	_, err = s.js.Publish(subject, data, nats.MsgId(ev.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
	}

	return nil
}

// Close closes the NATS connection.
func (s *NATSSink) Close() error {
	if s.conn != nil {
		s.connected = false
		s.conn.Close()
	}
	return nil
}
