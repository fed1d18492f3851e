package terminal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode"

	"github.com/antibyte/retrosheet/pkg/shared"
)

// Limits for inbound client frames. Client frames are tiny (a key name,
// a resize, a token); anything larger is not ours.
const (
	maxFrameBytes   = 4096
	maxKeyLength    = 32
	maxResizeRows   = 1000
	maxResizeCols   = 1000
	maxSessionIDLen = 128
)

var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrBadMessageType = errors.New("unexpected message type")
	ErrBadKey         = errors.New("malformed key name")
	ErrBadResize      = errors.New("resize out of range")
)

// MessageValidator screens inbound client frames before they reach an
// editor session.
type MessageValidator struct {
	MaxFrameBytes int
	MaxKeyLength  int
	MaxRows       int
	MaxCols       int
}

// NewMessageValidator creates a validator with the default limits.
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{
		MaxFrameBytes: maxFrameBytes,
		MaxKeyLength:  maxKeyLength,
		MaxRows:       maxResizeRows,
		MaxCols:       maxResizeCols,
	}
}

// ParseClientMessage decodes one inbound frame and checks it against
// the protocol: only key, resize, and auth refresh frames may come from
// the client, and their payloads must be within bounds.
func (v *MessageValidator) ParseClientMessage(data []byte) (*shared.Message, error) {
	if len(data) > v.MaxFrameBytes {
		return nil, ErrFrameTooLarge
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var msg shared.Message
	if err := decoder.Decode(&msg); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	switch msg.Type {
	case shared.MessageTypeKey:
		if err := v.validateKey(msg.Key); err != nil {
			return nil, err
		}
	case shared.MessageTypeResize:
		if msg.Rows < 1 || msg.Rows > v.MaxRows || msg.Cols < 1 || msg.Cols > v.MaxCols {
			return nil, ErrBadResize
		}
	case shared.MessageTypeAuthRefresh:
		if msg.Content == "" {
			return nil, errors.New("empty auth token")
		}
	default:
		return nil, ErrBadMessageType
	}

	return &msg, nil
}

// validateKey accepts printable single runes and the named keys the
// frontend emits (Enter, Escape, ArrowLeft, ...).
func (v *MessageValidator) validateKey(key string) error {
	if key == "" || len(key) > v.MaxKeyLength {
		return ErrBadKey
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return ErrBadKey
		}
	}
	return nil
}

// ValidateSessionID rejects session identifiers that cannot have come
// from our token issuer.
func (v *MessageValidator) ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return errors.New("session ID is empty")
	}
	if len(sessionID) > maxSessionIDLen {
		return errors.New("session ID too long")
	}
	for _, r := range sessionID {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return errors.New("session ID contains invalid characters")
		}
	}
	return nil
}
