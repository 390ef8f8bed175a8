// Package radio abstracts the half-duplex radio the uplink layer
// talks through. One received frame is delivered whole; the protocol
// above never sees physical-layer details.
package radio

import "time"

// Radio is the physical transceiver contract.
//
// Listen blocks until one whole frame arrives or the timeout elapses;
// a timeout yields (nil, nil). Send transmits one frame and returns
// once the radio has accepted it. LastRSSI reports the signal strength
// of the most recently received frame in dBm.
type Radio interface {
	Listen(timeout time.Duration) ([]byte, error)
	Send(frame []byte) error
	LastRSSI() int
	MaxFrameSize() int
}
