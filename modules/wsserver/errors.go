package wsserver

import "errors"

// ErrRateLimited is returned for an inbound frame over the connection's rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")
