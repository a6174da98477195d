package broadcast

import "errors"

var (
	// ErrDelivery wraps a failed write to a single local connection.
	ErrDelivery = errors.New("delivery failed")
	// ErrSendBufferFull is returned by a connection whose outbound buffer is full.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed is returned when sending on a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
)
