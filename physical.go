// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"time"

	"code.hybscloud.com/ntdcp/internal/ring"
)

// Duplex describes a physical interface's ability to transmit and receive
// at once.
type Duplex uint8

const (
	Simplex Duplex = iota
	HalfDuplex
	FullDuplex
)

// PhysicalOptions is the flat config record a physical interface reports
// about itself.
type PhysicalOptions struct {
	Duplex Duplex

	// TxToRxTime is the dead time between finishing a transmission and
	// being able to receive again (relevant for half-duplex radios).
	TxToRxTime time.Duration

	// TxTime is how long a single send occupies the medium.
	TxTime time.Duration

	// RetransmitBack, when true, allows the network layer to flood a
	// retransmission back out of the interface a packet arrived on.
	RetransmitBack bool

	// RingBufferSize bounds the incoming byte ring buffer's capacity.
	// Zero means unbounded.
	RingBufferSize int
}

// PhysicalInterface is the pluggable physical medium contract the network
// layer consumes: an incoming byte ring buffer, a send operation, a busy
// flag, and a flat options record. Framing, addressing and forwarding are
// all built on top of this contract; this package never implements a real
// medium itself (see package physnet for a stream-transport-backed one,
// and the simnet test harness for the in-process virtual medium used by
// this module's own tests).
type PhysicalInterface interface {
	// Incoming returns the ring buffer the network layer decodes frames
	// from. The same ring.Buffer is returned on every call; the network
	// layer only ever advances it, never replaces it.
	Incoming() *ring.Buffer

	// Send enqueues already channel-encoded bytes for transmission. It is
	// only ever called when Busy reports false.
	Send(frame []byte)

	// Busy reports whether the interface cannot currently accept another
	// Send.
	Busy() bool

	// Options reports the interface's duplex class and timing.
	Options() PhysicalOptions
}
