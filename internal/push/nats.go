package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the payload published for a downstream push gateway.
type Message struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NATSSender hands messages to a push gateway listening on a NATS subject.
type NATSSender struct {
	conn    publisher
	subject string
	close   func()
}

// NewNATSSender connects to url and publishes every message on subject.
func NewNATSSender(url, subject string) (*NATSSender, error) {
	nc, err := nats.Connect(url, nats.Name("team-todo-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSSender{conn: nc, subject: subject, close: nc.Close}, nil
}

func (s *NATSSender) Send(_ context.Context, token, title, body string) error {
	if token == "" {
		return ErrEmptyToken
	}

	payload, err := json.Marshal(Message{Token: token, Title: title, Body: body})
	if err != nil {
		return err
	}

	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.subject, err)
	}
	return nil
}

// Close closes the underlying NATS connection.
func (s *NATSSender) Close() {
	if s.close != nil {
		s.close()
	}
}
