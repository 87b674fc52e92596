package dto

import "errors"

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")
