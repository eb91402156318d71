// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

// defaultAcceptorCacheCapacity bounds the acceptor's recency cache of
// minted sockets, keyed by the client's connection-request message id.
const defaultAcceptorCacheCapacity = 10

// OnNewConnection is invoked synchronously during Serve when an acceptor
// mints a brand-new server-side socket.
type OnNewConnection func(*Socket)

// Acceptor listens on one port for connection_request packages. It mints
// a server-side Socket per distinct requester and keeps a small
// recency-ordered cache so a retransmitted request reaches the same
// socket instead of minting a duplicate.
type Acceptor struct {
	port      uint16
	transport *TransportLayer
	opts      SocketOptions
	onNew     OnNewConnection

	minted *CachingMap[uint16, *Socket]
}

// NewAcceptor returns an acceptor for listeningPort. onNew is called once
// per newly minted socket; it may be nil.
func NewAcceptor(listeningPort uint16, onNew OnNewConnection, opts ...SocketOption) *Acceptor {
	o := DefaultSocketOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Acceptor{
		port:   listeningPort,
		opts:   o,
		onNew:  onNew,
		minted: NewCachingMap[uint16, *Socket](defaultAcceptorCacheCapacity),
	}
}

// receive handles one connection_request addressed to this acceptor's
// port.
func (a *Acceptor) receive(desc TransportDescription) {
	if s, ok := a.minted.GetUpdate(desc.MessageID); ok {
		s.SendConnectionSubmit(desc.MessageID)
		return
	}

	localPort := RandomNonzero(a.transport.sys)
	s := NewSocket(a.transport.sys, localPort, desc.SourceAddr, desc.SourcePort, optsOption(a.opts))
	s.SendConnectionSubmit(desc.MessageID)

	a.minted.PutUpdate(desc.MessageID, s)
	a.transport.AddSocket(s)

	if a.onNew != nil {
		a.onNew(s)
	}
}

// optsOption lifts an already-resolved SocketOptions value back into a
// SocketOption, so NewSocket can share the acceptor's configured options
// without re-exposing a second constructor shape.
func optsOption(o SocketOptions) SocketOption {
	return func(dst *SocketOptions) { *dst = o }
}
