package radio

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// UDPRadio drives the protocol over a UDP socket pair. Flatsat and
// ground-test rigs use it in place of the RF deck: one datagram is one
// frame, which matches the whole-frame delivery the radio contract
// promises.
type UDPRadio struct {
	conn     *net.UDPConn
	peer     *net.UDPAddr
	maxFrame int
	lastRSSI int
}

// benchRSSI is reported for traffic that never touched an antenna.
const benchRSSI = -40

func NewUDPRadio(bindAddr, peerAddr string, maxFrameSize int) (*UDPRadio, error) {
	local, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("radio: resolve bind addr %q: %w", bindAddr, err)
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, fmt.Errorf("radio: resolve peer addr %q: %w", peerAddr, err)
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, fmt.Errorf("radio: bind %q: %w", bindAddr, err)
	}
	log.Debug().Str("bind", bindAddr).Str("peer", peerAddr).Msg("udp radio up")
	return &UDPRadio{conn: conn, peer: peer, maxFrame: maxFrameSize, lastRSSI: benchRSSI}, nil
}

func (r *UDPRadio) Listen(timeout time.Duration) ([]byte, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("radio: set deadline: %w", err)
	}
	buf := make([]byte, r.maxFrame)
	n, _, err := r.conn.ReadFromUDP(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("radio: receive: %w", err)
	}
	return buf[:n], nil
}

func (r *UDPRadio) Send(frame []byte) error {
	if _, err := r.conn.WriteToUDP(frame, r.peer); err != nil {
		return fmt.Errorf("radio: send: %w", err)
	}
	return nil
}

func (r *UDPRadio) LastRSSI() int { return r.lastRSSI }

func (r *UDPRadio) MaxFrameSize() int { return r.maxFrame }

func (r *UDPRadio) Close() error { return r.conn.Close() }
