// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"log/slog"

	"github.com/rs/xid"
)

// Node bundles a NetworkLayer and TransportLayer over a shared
// SystemDriver behind a single serve() call, mirroring
// original_source/ntdcp/ntdcp/node.hpp's bundling of physical interfaces,
// channel, and per-port sockets.
type Node struct {
	sys SystemDriver
	net *NetworkLayer
	tra *TransportLayer

	traceID xid.ID
	log     *slog.Logger
}

// NodeOption configures a Node at construction.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	sys   SystemDriver
	log   *slog.Logger
	met   *Metrics
	dedup int
}

// WithNodeSystemDriver overrides the default production SystemDriver,
// for tests that need a deterministic clock and random source.
func WithNodeSystemDriver(sys SystemDriver) NodeOption {
	return func(c *nodeConfig) { c.sys = sys }
}

// WithNodeLogger attaches a structured logger. Every log line the node
// and its layers emit carries the node's trace id.
func WithNodeLogger(log *slog.Logger) NodeOption {
	return func(c *nodeConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithNodeMetrics attaches a Metrics collector shared by the network and
// transport layers.
func WithNodeMetrics(m *Metrics) NodeOption {
	return func(c *nodeConfig) { c.met = m }
}

// WithNodeDedupCapacity overrides the network layer's default dedup set
// capacity.
func WithNodeDedupCapacity(capacity int) NodeOption {
	return func(c *nodeConfig) { c.dedup = capacity }
}

// NewNode returns a Node addressed at addr, ready to have physical
// interfaces attached via AddPhysical.
func NewNode(addr Address, opts ...NodeOption) *Node {
	cfg := nodeConfig{sys: NewSystemDriver(), log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	traceID := xid.New()
	log := cfg.log.With(slog.String("node_trace_id", traceID.String()))

	netOpts := []NetworkOption{WithNetworkLogger(log), WithNetworkMetrics(cfg.met)}
	if cfg.dedup > 0 {
		netOpts = append(netOpts, WithDedupCapacity(cfg.dedup))
	}
	net := NewNetworkLayer(cfg.sys, addr, netOpts...)
	tra := NewTransportLayer(net, WithTransportLogger(log), WithTransportMetrics(cfg.met))

	return &Node{sys: cfg.sys, net: net, tra: tra, traceID: traceID, log: log}
}

// Address returns the node's network address.
func (n *Node) Address() Address { return n.net.Address() }

// TraceID returns the node's short globally-sortable trace id, the same
// one attached to every log line this node emits.
func (n *Node) TraceID() xid.ID { return n.traceID }

// SystemDriver returns the clock/random source this node was built with.
func (n *Node) SystemDriver() SystemDriver { return n.sys }

// Network returns the node's network layer, for callers that need direct
// access (e.g. to read Metrics-adjacent counters or attach interfaces
// that also need network-level options).
func (n *Node) Network() *NetworkLayer { return n.net }

// Transport returns the node's transport layer.
func (n *Node) Transport() *TransportLayer { return n.tra }

// AddPhysical attaches a physical interface to the node's network layer.
func (n *Node) AddPhysical(p PhysicalInterface) { n.net.AddPhysical(p) }

// NewSocket mints a client-side reliable socket registered with this
// node's transport layer.
func (n *Node) NewSocket(localPort uint16, remoteAddr Address, remotePort uint16, opts ...SocketOption) *Socket {
	s := NewSocket(n.sys, localPort, remoteAddr, remotePort, opts...)
	n.tra.AddSocket(s)
	return s
}

// NewAcceptor mints and registers an acceptor listening on listeningPort.
func (n *Node) NewAcceptor(listeningPort uint16, onNew OnNewConnection, opts ...SocketOption) (*Acceptor, error) {
	a := NewAcceptor(listeningPort, onNew, opts...)
	if err := n.tra.AddAcceptor(a); err != nil {
		return nil, err
	}
	return a, nil
}

// NewDatagramTransmitter mints and registers a datagram transmitter.
func (n *Node) NewDatagramTransmitter(localPort uint16, remoteAddr Address, remotePort uint16) *DatagramTransmitter {
	tx := NewDatagramTransmitter(localPort, remoteAddr, remotePort)
	n.tra.AddDatagramTransmitter(tx)
	return tx
}

// NewDatagramReceiver mints and registers a datagram receiver listening
// on port.
func (n *Node) NewDatagramReceiver(port uint16) (*DatagramReceiver, error) {
	rx := NewDatagramReceiver(port)
	if err := n.tra.AddDatagramReceiver(rx); err != nil {
		return nil, err
	}
	return rx, nil
}

// Serve drives one round of the network layer followed by one round of
// the transport layer: transport's dispatch-on-incoming consumes the
// network layer's locally-delivered packages, so it must run second.
func (n *Node) Serve() {
	n.net.Serve()
	n.tra.Serve()
}
