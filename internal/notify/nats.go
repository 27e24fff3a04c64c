package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"tasksync/internal/logging"
)

// DefaultSubject is the subject notifications are published on.
const DefaultSubject = "tasksync.notifications"

// NATSConfig holds NATS publisher configuration.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Subject notifications are published on.
	Subject string

	// Name is the client name for identification.
	Name string

	// ConnectTimeout for the initial connection.
	ConnectTimeout time.Duration
}

// DefaultNATSConfig returns configuration with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		Subject:        DefaultSubject,
		Name:           "tasksync",
		ConnectTimeout: 2 * time.Second,
	}
}

// natsMessage is the wire form of a notification. Timeout is in milliseconds.
type natsMessage struct {
	Message  string   `json:"message"`
	Color    Color    `json:"color"`
	Position Position `json:"position"`
	Timeout  int64    `json:"timeout"`
}

// NATS publishes notifications as JSON on a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
	log     *logging.Logger
}

// NewNATS connects to the configured server.
func NewNATS(cfg NATSConfig, log *logging.Logger) (*NATS, error) {
	def := DefaultNATSConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.Subject == "" {
		cfg.Subject = def.Subject
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(0),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATSFromConn(conn, cfg.Subject, log), nil
}

// NewNATSFromConn wraps an existing connection.
func NewNATSFromConn(conn *nats.Conn, subject string, log *logging.Logger) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logging.Discard()
	}
	return &NATS{conn: conn, subject: subject, log: log}
}

// Notify publishes n. Errors are logged, never returned.
func (p *NATS) Notify(n Notification) {
	data, err := json.Marshal(natsMessage{
		Message:  n.Message,
		Color:    n.Color,
		Position: n.Position,
		Timeout:  n.Timeout.Milliseconds(),
	})
	if err != nil {
		p.log.Warn("encode notification", logging.Fields{"error": err})
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.log.Warn("publish notification", logging.Fields{"subject": p.subject, "error": err})
	}
}

// Close flushes pending messages and closes the connection.
func (p *NATS) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	if err := p.conn.Flush(); err != nil {
		p.conn.Close()
		return err
	}
	p.conn.Close()
	return nil
}
