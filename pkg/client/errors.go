package client

import "errors"

var (
	// ErrNotConnected is returned when an operation runs before Connect or
	// after Cleanup. It indicates a bug in the caller and is never retried.
	ErrNotConnected = errors.New("client is not connected")

	// ErrAlreadyConnected is returned by Connect on a connected client.
	ErrAlreadyConnected = errors.New("client is already connected")
)
