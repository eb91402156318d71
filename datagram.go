// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

// defaultDatagramQueueCapacity bounds both the transmitter's outgoing
// queue and the receiver's incoming queue.
const defaultDatagramQueueCapacity = 10

// DatagramTransmitter is a fire-and-forget sender bound to one remote
// address/port. It never tracks message ids or acknowledgements; queued
// sends are handed to the network layer in order, best-effort.
type DatagramTransmitter struct {
	localPort  uint16
	remoteAddr Address
	remotePort uint16

	outgoing *lockingQueue[[]byte]
}

// NewDatagramTransmitter returns a transmitter bound to localPort,
// targeting remoteAddr:remotePort.
func NewDatagramTransmitter(localPort uint16, remoteAddr Address, remotePort uint16) *DatagramTransmitter {
	return &DatagramTransmitter{
		localPort:  localPort,
		remoteAddr: remoteAddr,
		remotePort: remotePort,
		outgoing:   newLockingQueue[[]byte](defaultDatagramQueueCapacity),
	}
}

// Send enqueues buf. It reports false, dropping buf, when the outgoing
// queue is already at capacity (drop-newest).
func (tx *DatagramTransmitter) Send(buf []byte) bool {
	return tx.outgoing.Push(append([]byte(nil), buf...))
}

// Busy reports whether Send would currently be rejected: the outgoing
// queue is full. This mirrors the reliable socket's "cannot accept more"
// meaning rather than its logical inverse.
func (tx *DatagramTransmitter) Busy() bool { return tx.outgoing.Len() >= defaultDatagramQueueCapacity }

func (tx *DatagramTransmitter) pickOutgoing() (TransportDescription, []byte, bool) {
	buf, ok := tx.outgoing.Pop()
	if !ok {
		return TransportDescription{}, nil, false
	}
	desc := TransportDescription{
		Type:            TypeBroadcast,
		SourcePort:      tx.localPort,
		DestinationPort: tx.remotePort,
	}
	return desc, buf, true
}

// incomingDatagram is one received (source, payload) pair.
type incomingDatagram struct {
	Source  Address
	Payload []byte
}

// DatagramReceiver listens on one port for unreliable datagrams. Delivery
// is best-effort and unordered across senders; overflow silently drops
// the newest arrival.
type DatagramReceiver struct {
	port     uint16
	incoming *lockingQueue[incomingDatagram]
}

// NewDatagramReceiver returns a receiver listening on port.
func NewDatagramReceiver(port uint16) *DatagramReceiver {
	return &DatagramReceiver{
		port:     port,
		incoming: newLockingQueue[incomingDatagram](defaultDatagramQueueCapacity),
	}
}

// HasIncoming reports whether GetIncoming would return a datagram.
func (rx *DatagramReceiver) HasIncoming() bool { return !rx.incoming.Empty() }

// GetIncoming pops the oldest received datagram, if any.
func (rx *DatagramReceiver) GetIncoming() (Address, []byte, bool) {
	d, ok := rx.incoming.Pop()
	if !ok {
		return 0, nil, false
	}
	return d.Source, d.Payload, true
}

func (rx *DatagramReceiver) deliver(source Address, payload []byte) {
	rx.incoming.Push(incomingDatagram{Source: source, Payload: append([]byte(nil), payload...)})
}
