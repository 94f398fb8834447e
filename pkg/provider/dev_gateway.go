package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DevGateway implements Gateway for local development. It saves
// messages as JSON files to a directory instead of calling an external
// provider, and fabricates a message id so the rest of the pipeline
// behaves exactly as in production.
type DevGateway struct {
	name string
	dir  string
}

// NewDevGateway creates a development gateway that writes messages to disk.
// The directory is created on first send if it doesn't exist.
func NewDevGateway(name, dir string) *DevGateway {
	return &DevGateway{name: name, dir: dir}
}

// Name implements Gateway.
func (g *DevGateway) Name() string {
	return g.name
}

type devMessage struct {
	Timestamp string `json:"timestamp"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
}

// Send implements Gateway.
func (g *DevGateway) Send(ctx context.Context, recipient, subject, body string) (Receipt, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to create directory: %w", ErrSendFailed, err)
	}

	now := time.Now()
	messageID := uuid.New().String()

	msg := devMessage{
		Timestamp: now.Format(time.RFC3339),
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		MessageID: messageID,
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to marshal message: %w", ErrSendFailed, err)
	}

	filename := fmt.Sprintf("%s_%s.json", now.Format("2006_01_02_150405"), sanitizeFilename(recipient))
	if err := os.WriteFile(filepath.Join(g.dir, filename), data, 0644); err != nil {
		return Receipt{}, fmt.Errorf("%w: failed to write message file: %w", ErrSendFailed, err)
	}

	return Receipt{Provider: g.name, MessageID: messageID}, nil
}

var sanitizeRegex = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = sanitizeRegex.ReplaceAllString(s, "")

	const maxLength = 100
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
