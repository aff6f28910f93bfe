package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrMalformedIntake = errors.New("malformed document intake message")

// IntakeMessage is what the email source publishes for every PDF attachment.
// Content is base64 on the wire.
type IntakeMessage struct {
	Filename      string          `json:"filename"`
	Content       []byte          `json:"content"`
	EmailMetadata json.RawMessage `json:"email_metadata,omitempty"`
	ReceivedAt    time.Time       `json:"received_at"`
}

// DecodeIntake parses and checks an intake message. Any failure wraps
// ErrMalformedIntake so callers can route the message to the DLQ.
func DecodeIntake(raw []byte) (*IntakeMessage, error) {
	var msg IntakeMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIntake, err)
	}
	if strings.TrimSpace(msg.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is empty", ErrMalformedIntake)
	}
	if len(msg.Content) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrMalformedIntake)
	}
	return &msg, nil
}
