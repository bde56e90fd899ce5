package device

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed device.
var ErrClosed = errors.New("device closed")

// Device is the asynchronous key-value boundary relstore persists through.
// Every call may block on I/O and honors ctx cancellation.
type Device interface {
	// Get returns the value stored under key. ok is false when the key has
	// never been set; that is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases the device's resources.
	Close() error
}
