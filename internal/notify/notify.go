// Package notify publishes build events to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildCompleted is published after every build, successful or not.
type BuildCompleted struct {
	BuildID      string    `json:"build_id"`
	Outcome      string    `json:"outcome"`
	Source       string    `json:"source"`
	Output       string    `json:"output"`
	Pages        int       `json:"pages"`
	Skipped      int       `json:"skipped"`
	Issues       int       `json:"issues"`
	ManifestHash string    `json:"manifest_hash,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher is the subset of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Notifier sends build events to one subject.
type Notifier struct {
	pub     Publisher
	subject string
	timeout time.Duration
}

// Connect dials the NATS server at url.
func Connect(url, subject string) (*Notifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("sitebuilder"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Debug("Connected to NATS", logfields.URL(url), slog.String("subject", subject))
	return New(conn, subject), nil
}

// New wraps an existing publisher.
func New(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject, timeout: 5 * time.Second}
}

// BuildCompleted publishes ev and waits until the server has received it.
func (n *Notifier) BuildCompleted(ev BuildCompleted) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := n.pub.FlushTimeout(n.timeout); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published build event", logfields.BuildID(ev.BuildID), slog.String("subject", n.subject))
	return nil
}

// Close closes the underlying connection.
func (n *Notifier) Close() {
	if n.pub != nil {
		n.pub.Close()
	}
}
