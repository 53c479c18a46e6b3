package replay

import "errors"

// ErrMalformedInput is returned when a swap dump cannot be decoded.
var ErrMalformedInput = errors.New("malformed swap input")
