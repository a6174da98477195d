package chat

import "errors"

// Sentinel errors for inbound frame handling.
var (
	// ErrDecode is returned when an inbound frame is not a valid JSON object.
	ErrDecode = errors.New("malformed frame")

	// ErrMessageEmpty is returned when a message frame carries no content.
	ErrMessageEmpty = errors.New("message content cannot be empty")

	// ErrMessageTooLong is returned when message content exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("message exceeds maximum length")

	// ErrMessageInvalid is returned when message content is not valid UTF-8.
	ErrMessageInvalid = errors.New("message contains invalid characters")
)

// ErrUnknownType is returned for frames whose type is not one of the
// recognized event literals. Such frames are ignored.
var ErrUnknownType = errors.New("unknown frame type")
