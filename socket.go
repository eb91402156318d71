// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"sync"
	"time"
)

// SocketState is a reliable socket's position in its connection lifecycle.
type SocketState uint8

const (
	StateNotConnected SocketState = iota
	StateWaitingForSubmit
	StateConnected
	StateClosed
	StateConnectionTimeout
)

func (s SocketState) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateWaitingForSubmit:
		return "waiting_for_submit"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateConnectionTimeout:
		return "connection_timeout"
	default:
		return "unknown"
	}
}

// sendTask is the single in-flight message a reliable socket ever holds.
type sendTask struct {
	desc      TransportDescription
	buf       []byte
	created   time.Time
	lastPick  time.Time
	sentCount int
}

// ackTask is a pending acknowledgement, piggybacked or force-sent once
// force_ack_after elapses since the message that earned it arrived.
type ackTask struct {
	messageID            uint16
	receivedAt           time.Time
	sent                 bool
	forceSendImmediately bool
}

// Socket is a reliable, connection-oriented, one-message-in-flight stream
// socket. All state-machine fields are touched only from the thread that
// calls Serve/PickOutgoing/Receive; Connect, Send, Close, and the state
// accessors may be called from any goroutine and are serialized through
// mu, so user code may call them concurrently with Serve.
type Socket struct {
	mu   sync.Mutex
	sys  SystemDriver
	opts SocketOptions
	met  *Metrics

	localPort  uint16
	remoteAddr Address
	remotePort uint16

	state SocketState

	sendTask *sendTask
	ackTask  *ackTask

	nextMessageID         uint16
	lastReceivedMessageID uint16
	unconfirmedToRemote   uint16
	missedFromRemote      uint16

	incoming *lockingQueue[[]byte]
}

// NewSocket returns a client-side reliable socket bound to localPort,
// targeting remoteAddr:remotePort. It starts in not_connected; call
// Connect to begin the handshake.
func NewSocket(sys SystemDriver, localPort uint16, remoteAddr Address, remotePort uint16, opts ...SocketOption) *Socket {
	o := DefaultSocketOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Socket{
		sys:        sys,
		opts:       o,
		localPort:  localPort,
		remoteAddr: remoteAddr,
		remotePort: remotePort,
		incoming:   newLockingQueue[[]byte](0),
	}
}

// SetMetrics attaches a Metrics collector. Intended for use by the
// TransportLayer that owns the socket, before it is first served.
func (s *Socket) SetMetrics(m *Metrics) { s.met = m }

func (s *Socket) LocalPort() uint16   { return s.localPort }
func (s *Socket) RemoteAddr() Address { return s.remoteAddr }
func (s *Socket) RemotePort() uint16  { return s.remotePort }

// Connect arms a connection_request send task and moves to
// waiting_for_submit. It returns false if the socket was not
// not_connected (connect() from connected is a documented no-op).
func (s *Socket) Connect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateNotConnected {
		return false
	}
	now := s.sys.Now()
	s.sendTask = &sendTask{
		desc:    TransportDescription{Type: TypeConnectionRequest, MessageID: RandomNonzero(s.sys)},
		created: now,
	}
	s.state = StateWaitingForSubmit
	return true
}

// SendConnectionSubmit arms the server side of a handshake: called by an
// Acceptor for a brand-new client, or repeated (cheaply, without
// disturbing an established connection) when a connection_request
// retransmission hits an already-minted socket.
func (s *Socket) SendConnectionSubmit(requestMessageID uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.sys.Now()
	switch s.state {
	case StateNotConnected:
		s.ackTask = &ackTask{messageID: requestMessageID, receivedAt: now}
		s.nextMessageID = 0
		s.sendTask = &sendTask{
			desc:    TransportDescription{Type: TypeConnectionSubmit, MessageID: RandomNonzero(s.sys)},
			created: now,
		}
		s.state = StateConnected
		return true
	case StateConnected:
		s.ackTask = &ackTask{messageID: requestMessageID, receivedAt: now, forceSendImmediately: true}
		return true
	default:
		return false
	}
}

// Busy reports whether the socket cannot currently accept a Send: it
// already has an in-flight send task.
func (s *Socket) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendTask != nil
}

// ReadyToSend reports whether Send would succeed right now.
func (s *Socket) ReadyToSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected && s.sendTask == nil
}

// Send arms a data_transfer send task carrying buf. It fails if the
// socket is not connected or already has a send task in flight.
func (s *Socket) Send(buf []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.sendTask != nil {
		return false
	}
	s.nextMessageID++
	s.sendTask = &sendTask{
		desc:    TransportDescription{Type: TypeDataTransfer, MessageID: s.nextMessageID},
		buf:     append([]byte(nil), buf...),
		created: s.sys.Now(),
	}
	s.unconfirmedToRemote++
	return true
}

// HasData reports whether GetReceived would return a buffer.
func (s *Socket) HasData() bool { return !s.incoming.Empty() }

// GetReceived pops the oldest delivered message, if any.
func (s *Socket) GetReceived() ([]byte, bool) { return s.incoming.Pop() }

// Close is idempotent and a no-op from any state other than connected.
func (s *Socket) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return
	}
	s.state = StateClosed
	s.sendTask = &sendTask{desc: TransportDescription{Type: TypeConnectionClose}, created: s.sys.Now()}
}

func (s *Socket) State() SocketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Socket) UnconfirmedToRemote() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unconfirmedToRemote
}

func (s *Socket) MissedFromRemote() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missedFromRemote
}

// PickOutgoing is called once per serve round per registered socket by
// the transport layer's dispatch-on-outgoing. It applies the
// retransmission/timeout schedule and returns at most one description to
// send.
func (s *Socket) PickOutgoing(now time.Time) (TransportDescription, []byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnectionTimeout {
		return TransportDescription{}, nil, false
	}

	s.dropIfTimeout(now)
	if s.state == StateConnectionTimeout {
		return TransportDescription{}, nil, false
	}

	if s.sendTask == nil {
		if s.ackTask != nil && !s.ackTask.sent &&
			(now.Sub(s.ackTask.receivedAt) > s.opts.ForceAckAfter || s.ackTask.forceSendImmediately) {
			desc := TransportDescription{
				Type:            TypeDataTransfer,
				HasAck:          true,
				MessageID:       0,
				AckForMessageID: s.ackTask.messageID,
				SourcePort:      s.localPort,
				DestinationPort: s.remotePort,
			}
			s.ackTask.sent = true
			s.met.IncSocketAckSent()
			return desc, nil, true
		}
		return TransportDescription{}, nil, false
	}

	if s.sendTask.sentCount > 0 && now.Sub(s.sendTask.lastPick) < s.opts.RetransmissionTime {
		return TransportDescription{}, nil, false
	}
	s.sendTask.lastPick = now
	s.sendTask.sentCount++
	if s.sendTask.sentCount > 1 {
		s.met.IncSocketRetransmit()
	}

	desc := s.sendTask.desc
	desc.SourcePort = s.localPort
	desc.DestinationPort = s.remotePort
	if s.ackTask != nil && !s.ackTask.sent {
		desc.HasAck = true
		desc.AckForMessageID = s.ackTask.messageID
		s.ackTask.sent = true
		s.met.IncSocketAckSent()
	}
	return desc, s.sendTask.buf, true
}

func (s *Socket) dropIfTimeout(now time.Time) {
	if s.sendTask == nil {
		return
	}
	if now.Sub(s.sendTask.created) <= s.opts.Timeout {
		return
	}
	wasConnectionRequest := s.sendTask.desc.Type == TypeConnectionRequest
	s.sendTask = nil
	if wasConnectionRequest || s.opts.Policy == PolicyBreakWhenTimeout {
		s.state = StateConnectionTimeout
	}
}

// Receive applies an incoming TransportDescription to the state machine.
// The caller (TransportLayer) has already matched this socket by its
// dispatch rules; Receive assumes desc is addressed to this socket.
func (s *Socket) Receive(desc TransportDescription, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnectionTimeout {
		return
	}
	now := s.sys.Now()

	if s.sendTask != nil && desc.HasAck && desc.AckForMessageID == s.sendTask.desc.MessageID {
		s.sendTask = nil
		if s.unconfirmedToRemote > 0 {
			s.unconfirmedToRemote--
		}
	}

	// A closed socket only ever expects a connection_close_submit; any
	// other type that still reaches it (a straggler retransmission) gets
	// a fresh close submit that never expects an ack in return.
	if s.state == StateClosed && desc.Type != TypeConnectionCloseSubmit {
		s.sendTask = &sendTask{desc: TransportDescription{Type: TypeConnectionCloseSubmit}, created: now}
		return
	}

	switch desc.Type {
	case TypeConnectionSubmit:
		if s.state == StateWaitingForSubmit {
			s.remotePort = desc.SourcePort
			s.sendTask = nil
			s.nextMessageID = 0
			s.state = StateConnected
		}
		if s.state == StateConnected {
			s.ackTask = &ackTask{messageID: desc.MessageID, receivedAt: now}
		}

	case TypeConnectionClose:
		if s.state == StateConnected {
			s.state = StateClosed
			s.sendTask = &sendTask{desc: TransportDescription{Type: TypeConnectionCloseSubmit}, created: now}
			s.lastReceivedMessageID = desc.MessageID
		}

	case TypeConnectionCloseSubmit:
		if s.state == StateClosed {
			s.sendTask = nil
			s.ackTask = nil
			if s.unconfirmedToRemote > 0 {
				s.unconfirmedToRemote--
			}
		}

	default:
		if desc.MessageID == 0 {
			// Pure piggybacked-ack carrier, already handled above.
			return
		}
		if desc.MessageID > s.lastReceivedMessageID {
			if len(payload) > 0 {
				s.incoming.Push(append([]byte(nil), payload...))
			}
			s.missedFromRemote += desc.MessageID - (s.lastReceivedMessageID + 1)
			s.lastReceivedMessageID = desc.MessageID
		}
		s.ackTask = &ackTask{messageID: desc.MessageID, receivedAt: now}
	}
}
