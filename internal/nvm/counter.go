package nvm

import (
	"encoding/binary"
	"fmt"
)

// counterWidth is the number of NVM bytes a Counter16 occupies.
const counterWidth = 2

// Counter16 is a 16-bit counter stored as two consecutive bytes in
// non-volatile memory, high byte first. It survives resets; only a
// full memory wipe clears it. The owner is responsible for mutation
// ordering, there is no internal locking.
type Counter16 struct {
	store  Store
	offset int
}

// NewCounter16 binds a counter to two consecutive bytes at offset.
// A missing or undersized store is a hardware-initialization error.
func NewCounter16(store Store, offset int) (*Counter16, error) {
	if store == nil {
		return nil, ErrStoreUnavailable
	}
	if offset < 0 || offset+counterWidth > store.Size() {
		return nil, fmt.Errorf("%w: counter needs bytes [%d,%d)", ErrOutOfRange, offset, offset+counterWidth)
	}
	return &Counter16{store: store, offset: offset}, nil
}

// Get reads the current value, big-endian.
func (c *Counter16) Get() (uint16, error) {
	b, err := c.store.Read(c.offset, counterWidth)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// Set writes the value, both bytes in one store write.
func (c *Counter16) Set(value uint16) error {
	var b [counterWidth]byte
	binary.BigEndian.PutUint16(b[:], value)
	return c.store.Write(c.offset, b[:])
}

// Increment adds one with 16-bit wraparound.
func (c *Counter16) Increment() error {
	v, err := c.Get()
	if err != nil {
		return err
	}
	return c.Set(v + 1)
}
