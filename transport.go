// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "log/slog"

// socketKey identifies a reliable socket by its local port and the
// 4-tuple it either already has (remotePort != 0) or will bind once a
// connection_submit arrives (remotePort == 0, matched on remoteAddr and
// localPort alone).
type socketKey struct {
	localPort  uint16
	remoteAddr Address
	remotePort uint16
}

// TransportLayer multiplexes network packages by port and 4-tuple onto
// registered sockets, acceptors, and datagram endpoints, and drives their
// outgoing schedules. One TransportLayer is bound to one NetworkLayer and
// scoped to one node, same as the network layer it rides on.
type TransportLayer struct {
	net *NetworkLayer
	sys SystemDriver
	log *slog.Logger
	met *Metrics

	sockets   map[*Socket]struct{}
	acceptors map[uint16]*Acceptor

	datagramTx map[*DatagramTransmitter]struct{}
	datagramRx map[uint16]*DatagramReceiver
}

// TransportOption configures a TransportLayer at construction.
type TransportOption func(*TransportLayer)

// WithTransportLogger attaches a structured logger for malformed-input
// diagnostics.
func WithTransportLogger(log *slog.Logger) TransportOption {
	return func(t *TransportLayer) {
		if log != nil {
			t.log = log
		}
	}
}

// WithTransportMetrics attaches a Metrics collector, also wired into
// every socket registered afterward.
func WithTransportMetrics(m *Metrics) TransportOption {
	return func(t *TransportLayer) { t.met = m }
}

// NewTransportLayer returns a TransportLayer riding on net.
func NewTransportLayer(net *NetworkLayer, opts ...TransportOption) *TransportLayer {
	t := &TransportLayer{
		net:        net,
		sys:        net.SystemDriver(),
		log:        slog.New(slog.DiscardHandler),
		sockets:    make(map[*Socket]struct{}),
		acceptors:  make(map[uint16]*Acceptor),
		datagramTx: make(map[*DatagramTransmitter]struct{}),
		datagramRx: make(map[uint16]*DatagramReceiver),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddSocket registers a client-created reliable socket so its outgoing
// schedule is driven and incoming traffic addressed to it is dispatched.
func (t *TransportLayer) AddSocket(s *Socket) {
	s.SetMetrics(t.met)
	t.sockets[s] = struct{}{}
}

// RemoveSocket unregisters a reliable socket.
func (t *TransportLayer) RemoveSocket(s *Socket) { delete(t.sockets, s) }

// AddAcceptor registers an acceptor listening on its own port. It returns
// ErrAcceptorExists if the port already has one: exactly one acceptor may
// listen per port.
func (t *TransportLayer) AddAcceptor(a *Acceptor) error {
	if _, exists := t.acceptors[a.port]; exists {
		return ErrAcceptorExists
	}
	a.transport = t
	t.acceptors[a.port] = a
	return nil
}

// RemoveAcceptor unregisters the acceptor on port, if any.
func (t *TransportLayer) RemoveAcceptor(port uint16) { delete(t.acceptors, port) }

// AddDatagramTransmitter registers a datagram transmitter so its outgoing
// queue is drained each serve round.
func (t *TransportLayer) AddDatagramTransmitter(tx *DatagramTransmitter) {
	t.datagramTx[tx] = struct{}{}
}

// RemoveDatagramTransmitter unregisters a datagram transmitter.
func (t *TransportLayer) RemoveDatagramTransmitter(tx *DatagramTransmitter) {
	delete(t.datagramTx, tx)
}

// AddDatagramReceiver registers a datagram receiver listening on its own
// port. It returns ErrAcceptorExists if the port already has a datagram
// receiver; an acceptor on the same port is not checked.
func (t *TransportLayer) AddDatagramReceiver(rx *DatagramReceiver) error {
	if _, exists := t.datagramRx[rx.port]; exists {
		return ErrAcceptorExists
	}
	t.datagramRx[rx.port] = rx
	return nil
}

// RemoveDatagramReceiver unregisters the datagram receiver on port, if any.
func (t *TransportLayer) RemoveDatagramReceiver(port uint16) { delete(t.datagramRx, port) }

// SystemDriver returns the clock/random source this layer rides on.
func (t *TransportLayer) SystemDriver() SystemDriver { return t.sys }

// Serve drives one round of dispatch on every package the network layer
// delivered locally since the last call, followed by one round of
// outgoing pick_outgoing across every registered socket and datagram
// endpoint.
func (t *TransportLayer) Serve() {
	t.serveIncoming()
	t.serveOutgoing()
}

func (t *TransportLayer) serveIncoming() {
	for {
		pkg, ok := t.net.Incoming()
		if !ok {
			return
		}
		desc, payload, ok := DecodeDescription(pkg.Data)
		if !ok {
			t.log.Debug("ntdcp: dropping malformed transport header")
			t.met.IncDroppedMalformed()
			continue
		}
		desc.SourceAddr = pkg.Source
		t.dispatchIncoming(desc, payload)
	}
}

func (t *TransportLayer) dispatchIncoming(desc TransportDescription, payload []byte) {
	switch desc.Type {
	case TypeConnectionRequest:
		if a, ok := t.acceptors[desc.DestinationPort]; ok {
			a.receive(desc)
		}

	case TypeConnectionSubmit:
		if s := t.findSubmitTarget(desc); s != nil {
			s.Receive(desc, payload)
		}

	case TypeConnectionCloseSubmit:
		if s := t.findSocket(desc, StateClosed); s != nil {
			s.Receive(desc, payload)
		}

	case TypeBroadcast:
		if rx, ok := t.datagramRx[desc.DestinationPort]; ok {
			rx.deliver(desc.SourceAddr, payload)
		}

	default:
		// data_transfer, connection_close: delivered to an established
		// socket, or to one already closed so it can repeat its close
		// submit for anything arriving after it has moved to closed.
		if s := t.findSocket(desc, StateConnected, StateClosed); s != nil {
			s.Receive(desc, payload)
		}
	}
}

func (t *TransportLayer) findSubmitTarget(desc TransportDescription) *Socket {
	for s := range t.sockets {
		if s.RemoteAddr() != desc.SourceAddr || s.LocalPort() != desc.DestinationPort {
			continue
		}
		switch s.State() {
		case StateWaitingForSubmit, StateConnected:
			return s
		}
	}
	return nil
}

func (t *TransportLayer) findSocket(desc TransportDescription, states ...SocketState) *Socket {
	for s := range t.sockets {
		if s.LocalPort() != desc.DestinationPort || s.RemoteAddr() != desc.SourceAddr || s.RemotePort() != desc.SourcePort {
			continue
		}
		state := s.State()
		for _, want := range states {
			if state == want {
				return s
			}
		}
	}
	return nil
}

func (t *TransportLayer) serveOutgoing() {
	now := t.sys.Now()
	for s := range t.sockets {
		desc, buf, ok := s.PickOutgoing(now)
		if !ok {
			continue
		}
		t.send(desc, buf, s.RemoteAddr())
	}
	for tx := range t.datagramTx {
		desc, buf, ok := tx.pickOutgoing()
		if !ok {
			continue
		}
		t.send(desc, buf, tx.remoteAddr)
	}
}

func (t *TransportLayer) send(desc TransportDescription, buf []byte, dst Address) {
	payload := EncodeDescription(desc, buf)
	t.net.Send(payload, dst, defaultHopLimit)
}
