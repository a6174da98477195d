package relay

import "errors"

var (
	// ErrPublish wraps a transport failure while publishing an event.
	ErrPublish = errors.New("publish failed")
	// ErrBusUnavailable is returned when no bus connection is established.
	ErrBusUnavailable = errors.New("relay bus unavailable")
	// ErrListenerDecode wraps a malformed payload received from the bus.
	ErrListenerDecode = errors.New("malformed relay payload")
	// ErrInvalidChannel is returned for channel names outside the room naming scheme.
	ErrInvalidChannel = errors.New("invalid room channel")
	// ErrUnknownBackend is returned for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown relay backend")
)
