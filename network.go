// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"log/slog"
)

// defaultDedupCapacity is the dedup set's default capacity: a horizon of
// at least the last 100 distinct package ids.
const defaultDedupCapacity = 100

// defaultHopLimit is the hop limit transport uses when it does not set
// one explicitly.
const defaultHopLimit = 10

// IncomingPackage is a network-layer delivery to the local upstack: the
// originating address and the decoded payload.
type IncomingPackage struct {
	Source Address
	Data   []byte
}

// NetworkLayer originates, receives, deduplicates, locally-delivers and
// flood-forwards addressed packets over one or more PhysicalInterfaces.
//
// A NetworkLayer is driven exclusively by Serve, called periodically from
// one thread; Send may be called from that same thread only.
type NetworkLayer struct {
	sys  SystemDriver
	addr Address
	log  *slog.Logger
	met  *Metrics

	phys     []PhysicalInterface
	channels map[PhysicalInterface]*Channel
	outgoing map[PhysicalInterface][][]byte

	incoming []IncomingPackage
	dedup    *CachingSet[PackageID]
}

// NetworkOption configures a NetworkLayer at construction.
type NetworkOption func(*NetworkLayer)

// WithNetworkLogger attaches a structured logger for malformed-input and
// forwarding diagnostics. Without one, or given nil, everything is
// discarded.
func WithNetworkLogger(log *slog.Logger) NetworkOption {
	return func(n *NetworkLayer) {
		if log != nil {
			n.log = log
		}
	}
}

// WithNetworkMetrics attaches a Metrics collector.
func WithNetworkMetrics(m *Metrics) NetworkOption {
	return func(n *NetworkLayer) { n.met = m }
}

// WithDedupCapacity overrides the default 100-entry deduplication horizon.
func WithDedupCapacity(capacity int) NetworkOption {
	return func(n *NetworkLayer) { n.dedup = NewCachingSet[PackageID](capacity) }
}

// NewNetworkLayer returns a NetworkLayer for the node at addr.
func NewNetworkLayer(sys SystemDriver, addr Address, opts ...NetworkOption) *NetworkLayer {
	n := &NetworkLayer{
		sys:      sys,
		addr:     addr,
		log:      slog.New(slog.DiscardHandler),
		channels: make(map[PhysicalInterface]*Channel),
		outgoing: make(map[PhysicalInterface][][]byte),
		dedup:    NewCachingSet[PackageID](defaultDedupCapacity),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Address returns the node's own network address.
func (n *NetworkLayer) Address() Address { return n.addr }

// SystemDriver returns the clock/random source this layer was built with.
func (n *NetworkLayer) SystemDriver() SystemDriver { return n.sys }

// AddPhysical attaches a physical interface. Packets are flooded onto
// every attached interface; order only affects iteration, not semantics.
func (n *NetworkLayer) AddPhysical(p PhysicalInterface) {
	n.phys = append(n.phys, p)
	n.channels[p] = &Channel{}
	n.outgoing[p] = nil
}

// Send originates a packet: it is delivered locally (if dst is
// acceptable), flooded onto every attached physical interface (unless dst
// is exactly the node's own address), and its id is recorded in the dedup
// set either way so a looped-back retransmission is suppressed.
func (n *NetworkLayer) Send(payload []byte, dst Address, hopLimit uint8) PackageID {
	id := PackageID(RandomNonzero(n.sys))

	if acceptable(n.addr, dst) {
		n.deliverLocal(n.addr, payload)
		n.dedup.CheckUpdate(id)
		if dst == n.addr {
			return id
		}
	}

	header := NetworkHeader{Source: n.addr, Destination: dst, PackageID: id, HopLimit: hopLimit}
	framed := EncodeFrame(EncodeHeader(header, payload))
	n.dedup.CheckUpdate(id)
	n.flood(framed, nil)
	n.met.IncOriginated()
	return id
}

func (n *NetworkLayer) deliverLocal(source Address, payload []byte) {
	cp := append([]byte(nil), payload...)
	n.incoming = append(n.incoming, IncomingPackage{Source: source, Data: cp})
}

func (n *NetworkLayer) flood(framed []byte, except PhysicalInterface) {
	for _, p := range n.phys {
		if p == except && !except.Options().RetransmitBack {
			continue
		}
		n.outgoing[p] = append(n.outgoing[p], framed)
	}
}

// Incoming pops the oldest pending local delivery, if any.
func (n *NetworkLayer) Incoming() (IncomingPackage, bool) {
	if len(n.incoming) == 0 {
		return IncomingPackage{}, false
	}
	pkg := n.incoming[0]
	n.incoming = n.incoming[1:]
	return pkg, true
}

// Serve drives one round of incoming decode/dispatch followed by outgoing
// hand-off to every physical interface.
func (n *NetworkLayer) Serve() {
	n.serveIncoming()
	n.serveOutgoing()
}

func (n *NetworkLayer) serveIncoming() {
	for _, p := range n.phys {
		ch := n.channels[p]
		frames := ch.Decode(p.Incoming())
		for _, f := range frames {
			header, body, ok := DecodeHeader(f.Body)
			if !ok {
				n.log.Debug("ntdcp: dropping malformed network header")
				n.met.IncDroppedMalformed()
				continue
			}

			if n.dedup.CheckUpdate(header.PackageID) {
				n.met.IncDedupHit()
				continue
			}

			if acceptable(n.addr, header.Destination) {
				n.deliverLocal(header.Source, body)
				if header.Destination != Broadcast {
					continue
				}
				// A broadcast is delivered locally and still flooded
				// onward in the same step, subject to the hop limit and
				// dedup already applied above.
			}

			n.retransmit(header, body, p)
		}
	}
}

func (n *NetworkLayer) retransmit(header NetworkHeader, body []byte, cameFrom PhysicalInterface) {
	if header.HopLimit == 0 {
		n.met.IncDroppedHopLimit()
		return
	}
	header.HopLimit--
	if header.HopLimit == 0 {
		n.met.IncDroppedHopLimit()
		return
	}
	framed := EncodeFrame(EncodeHeader(header, body))
	n.flood(framed, cameFrom)
	n.met.IncForwarded()
}

func (n *NetworkLayer) serveOutgoing() {
	for _, p := range n.phys {
		queue := n.outgoing[p]
		for len(queue) > 0 && !p.Busy() {
			p.Send(queue[0])
			queue = queue[1:]
		}
		n.outgoing[p] = queue
	}
}
