// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package physnet

import (
	"time"

	"code.hybscloud.com/ntdcp/internal/ring"
)

// Bridge relays raw bytes between two StreamPhysical-backed connections
// with the same two-phase read-then-write shape as a store-and-forward
// relay, but working on undelimited byte runs instead of framed
// messages: anything arriving on one side's ring buffer is drained and
// handed to the other side's Send, and vice versa, once per Tick.
//
// A Bridge does not decode or validate channel frames; it exists to
// splice together two physical media (for example a simulated lossy link
// and a real TCP relay) so a single logical link can be composed out of
// two StreamPhysical adapters.
type Bridge struct {
	left, right *StreamPhysical

	leftPending, rightPending []byte
}

// NewBridge returns a Bridge relaying bytes between left and right.
func NewBridge(left, right *StreamPhysical) *Bridge {
	return &Bridge{left: left, right: right}
}

// Tick pumps both sides' I/O and then relays whatever each side's ring
// buffer accumulated to the other side, draining pending bytes from a
// previous Tick first if the destination was still busy.
func (b *Bridge) Tick(now time.Time) error {
	if err := b.left.Pump(now); err != nil {
		return err
	}
	if err := b.right.Pump(now); err != nil {
		return err
	}

	b.rightPending = relay(b.rightPending, b.left.Incoming(), b.right)
	b.leftPending = relay(b.leftPending, b.right.Incoming(), b.left)

	return nil
}

// relay first retries any bytes left over from a previous call, then
// drains src's ring buffer, handing everything to dst.Send while dst
// reports not busy. Whatever cannot be sent this tick is returned to be
// retried on the next one.
func relay(pending []byte, src *ring.Buffer, dst *StreamPhysical) []byte {
	if len(pending) > 0 {
		if dst.Busy() {
			return pending
		}
		dst.Send(pending)
		pending = nil
	}

	n := src.Len()
	if n == 0 {
		return pending
	}
	chunk, ok := src.Peek(0, n)
	if !ok {
		return pending
	}
	buf := make([]byte, n)
	copy(buf, chunk)
	src.Advance(n)

	if dst.Busy() {
		return buf
	}
	dst.Send(buf)
	return nil
}
