package session

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/stomp-debugger/tui/internal/logbuf"
)

// Publisher validates outbound bodies and hands them to the transport.
type Publisher struct {
	log *logbuf.Buffer
}

// NewPublisher creates a publisher that records sent frames into log.
func NewPublisher(log *logbuf.Buffer) *Publisher {
	return &Publisher{log: log}
}

// ValidatePayload reports whether body is a well-formed JSON document.
func ValidatePayload(body string) error {
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	return nil
}

// Publish validates body and submits it to destination. Nothing reaches t
// unless validation passes.
func (p *Publisher) Publish(t Transport, destination, body string) error {
	if destination == "" {
		return fmt.Errorf("%w: destination is required", ErrInvalidConfig)
	}
	if err := ValidatePayload(body); err != nil {
		return err
	}
	if err := t.Publish(destination, body); err != nil {
		p.log.Append(logbuf.KindError, destination, fmt.Sprintf("Publish failed: %v", err))
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	p.log.Append(logbuf.KindSent, destination, body)
	return nil
}
