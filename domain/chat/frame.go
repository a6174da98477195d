package chat

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxMessageLength is the maximum content length of a chat message in bytes.
const MaxMessageLength = 5000

// MaxFrameSize is the smallest transport read limit that admits every frame
// carrying valid content: each content byte escaped as \u00XX plus the
// JSON envelope.
const MaxFrameSize = 6*MaxMessageLength + 1024

// FrameKind discriminates inbound frames by their "type" field.
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameMessage
	FrameTypingStart
	FrameTypingStop
)

func (k FrameKind) String() string {
	switch k {
	case FrameMessage:
		return TypeMessage
	case FrameTypingStart:
		return TypeTypingStart
	case FrameTypingStop:
		return TypeTypingStop
	default:
		return "unknown"
	}
}

// Frame is a decoded inbound client frame.
type Frame struct {
	Kind FrameKind
	// Type is the raw "type" value, kept for logging unknown frames.
	Type    string
	Content string
}

// Sender identifies the connection a frame arrived on.
type Sender struct {
	ChatID   string
	UserID   string
	Username string
}

type rawFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// DecodeFrame parses a text frame of the form {"type": string, "content"?: string}.
// Fields other than type and content are ignored. A frame with a missing or
// unrecognized type decodes successfully with Kind FrameUnknown.
func DecodeFrame(data []byte) (Frame, error) {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	frame := Frame{Type: raw.Type, Content: raw.Content}
	switch raw.Type {
	case TypeMessage:
		frame.Kind = FrameMessage
	case TypeTypingStart:
		frame.Kind = FrameTypingStart
	case TypeTypingStop:
		frame.Kind = FrameTypingStop
	default:
		frame.Kind = FrameUnknown
	}
	return frame, nil
}

// Event builds the event the frame asks to publish on behalf of from.
// Unknown frames return ErrUnknownType; message frames with invalid content
// return the matching validation error.
func (f Frame) Event(from Sender) (Event, error) {
	switch f.Kind {
	case FrameMessage:
		if err := ValidateMessage(f.Content); err != nil {
			return nil, err
		}
		return NewChatMessage(from.ChatID, from.UserID, from.Username, f.Content), nil
	case FrameTypingStart, FrameTypingStop:
		return NewTypingEvent(from.ChatID, from.UserID, from.Username, f.Kind.String()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}

// ValidateMessage validates message content.
func ValidateMessage(content string) error {
	if content == "" {
		return ErrMessageEmpty
	}
	if len(content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}
