package testutil

import (
	"context"
	"sync/atomic"

	"github.com/roach88/relstore/internal/device"
)

// CountingDevice wraps a device.Memory and counts calls.
type CountingDevice struct {
	*device.Memory
	gets atomic.Int64
	sets atomic.Int64
}

// NewCountingDevice returns a CountingDevice over an empty memory device.
func NewCountingDevice() *CountingDevice {
	return &CountingDevice{Memory: device.NewMemory()}
}

func (d *CountingDevice) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d.gets.Add(1)
	return d.Memory.Get(ctx, key)
}

func (d *CountingDevice) Set(ctx context.Context, key string, value []byte) error {
	d.sets.Add(1)
	return d.Memory.Set(ctx, key, value)
}

// Gets returns the number of Get calls.
func (d *CountingDevice) Gets() int64 { return d.gets.Load() }

// Sets returns the number of Set calls.
func (d *CountingDevice) Sets() int64 { return d.sets.Load() }

// FailingDevice fails Get and/or Set with Err.
type FailingDevice struct {
	*device.Memory
	Err     error
	FailGet bool
	FailSet bool
}

// NewFailingDevice returns a device whose every call fails with err.
func NewFailingDevice(err error) *FailingDevice {
	return &FailingDevice{Memory: device.NewMemory(), Err: err, FailGet: true, FailSet: true}
}

func (d *FailingDevice) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if d.FailGet {
		return nil, false, d.Err
	}
	return d.Memory.Get(ctx, key)
}

func (d *FailingDevice) Set(ctx context.Context, key string, value []byte) error {
	if d.FailSet {
		return d.Err
	}
	return d.Memory.Set(ctx, key, value)
}
