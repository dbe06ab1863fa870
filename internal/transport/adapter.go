// Package transport bridges the engagement engine to chat platforms
// (WhatsApp in production, a mock in tests).
package transport

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and direct-message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform. For platforms
	// that pair via QR code this blocks until the session is authenticated.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a direct message received from the chat platform.
// Sender carries the canonical phone identity (see internal/phone).
type InboundMessage struct {
	Sender    string    // canonical phone identity of the author
	Text      string    // raw message text
	Timestamp time.Time // when the message was sent
}

// OutboundMessage represents a direct message to be sent to one recipient.
type OutboundMessage struct {
	To   string // canonical phone identity of the recipient
	Text string // message text (platform-native formatting)
}
