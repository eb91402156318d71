// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp_test

import (
	"testing"
	"time"

	"code.hybscloud.com/ntdcp"
	"code.hybscloud.com/ntdcp/internal/simnet"
)

// pumpRounds drives every node's Serve() rounds times, in order, each
// round. A transport-layer send enqueued during one node's Serve call is
// only handed to its physical interface on that node's *next* Serve
// call (network-outgoing runs before transport-outgoing within a single
// Serve), so callers give this enough rounds to let traffic settle.
func pumpRounds(rounds int, nodes ...*ntdcp.Node) {
	for i := 0; i < rounds; i++ {
		for _, n := range nodes {
			n.Serve()
		}
	}
}

func TestEndToEnd_TwoNodeDatagram(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	med := simnet.NewMedium()

	a := ntdcp.NewNode(123, ntdcp.WithNodeSystemDriver(sys))
	b := ntdcp.NewNode(321, ntdcp.WithNodeSystemDriver(sys))
	a.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))
	b.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))

	rx, err := b.NewDatagramReceiver(10)
	if err != nil {
		t.Fatalf("NewDatagramReceiver: %v", err)
	}
	tx := a.NewDatagramTransmitter(10, 321, 10)

	if !tx.Send([]byte("Hello A->B")) {
		t.Fatalf("Send should succeed on an idle transmitter")
	}

	pumpRounds(3, a, b)

	if !rx.HasIncoming() {
		t.Fatalf("B's receiver should have exactly one incoming datagram")
	}
	source, payload, ok := rx.GetIncoming()
	if !ok || source != 123 || string(payload) != "Hello A->B" {
		t.Fatalf("GetIncoming=%v,%q,%v, want source=123 payload=Hello A->B", source, payload, ok)
	}
	if rx.HasIncoming() {
		t.Fatalf("exactly one datagram should have been delivered")
	}
}

func TestEndToEnd_ReliableHandshakeAndForceAck(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	med := simnet.NewMedium()

	a := ntdcp.NewNode(123, ntdcp.WithNodeSystemDriver(sys))
	b := ntdcp.NewNode(321, ntdcp.WithNodeSystemDriver(sys))
	a.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))
	b.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))

	var accepted *ntdcp.Socket
	if _, err := b.NewAcceptor(10, func(s *ntdcp.Socket) { accepted = s }); err != nil {
		t.Fatalf("NewAcceptor: %v", err)
	}

	client := a.NewSocket(300, 321, 10)
	if !client.Connect() {
		t.Fatalf("Connect should succeed")
	}

	pumpRounds(6, a, b)
	sys.Advance(300 * time.Millisecond) // past force_ack_after so A's ack is forced through
	pumpRounds(6, a, b)

	if client.State() != ntdcp.StateConnected {
		t.Fatalf("client state=%v, want connected", client.State())
	}
	if accepted == nil {
		t.Fatalf("acceptor never minted a server-side socket")
	}
	if accepted.State() != ntdcp.StateConnected {
		t.Fatalf("server socket state=%v, want connected", accepted.State())
	}
	if client.Busy() || accepted.Busy() {
		t.Fatalf("neither socket should have an in-flight send task once the handshake settles")
	}
	if client.UnconfirmedToRemote() != 0 || accepted.UnconfirmedToRemote() != 0 {
		t.Fatalf("unconfirmed_to_remote should be 0 on both ends")
	}
	if client.MissedFromRemote() != 0 || accepted.MissedFromRemote() != 0 {
		t.Fatalf("missed_from_remote should be 0 on both ends")
	}
}

func TestEndToEnd_DataTransferAfterHandshake(t *testing.T) {
	sys := simnet.NewDriver(7, time.Unix(0, 0))
	med := simnet.NewMedium()

	a := ntdcp.NewNode(1, ntdcp.WithNodeSystemDriver(sys))
	b := ntdcp.NewNode(2, ntdcp.WithNodeSystemDriver(sys))
	a.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))
	b.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))

	var accepted *ntdcp.Socket
	if _, err := b.NewAcceptor(50, func(s *ntdcp.Socket) { accepted = s }); err != nil {
		t.Fatalf("NewAcceptor: %v", err)
	}
	client := a.NewSocket(500, 2, 50)
	client.Connect()

	pumpRounds(6, a, b)
	sys.Advance(300 * time.Millisecond)
	pumpRounds(6, a, b)

	if accepted == nil || accepted.State() != ntdcp.StateConnected {
		t.Fatalf("handshake did not complete")
	}

	if !client.Send([]byte("message one")) {
		t.Fatalf("Send should succeed once connected")
	}
	pumpRounds(6, a, b)
	sys.Advance(300 * time.Millisecond)
	pumpRounds(6, a, b)

	if !accepted.HasData() {
		t.Fatalf("server should have received the data message")
	}
	buf, _ := accepted.GetReceived()
	if string(buf) != "message one" {
		t.Fatalf("received %q, want %q", buf, "message one")
	}
	if client.Busy() {
		t.Fatalf("client's send task should be confirmed once the server's ack arrives")
	}
}

func TestEndToEnd_CloseHandshake(t *testing.T) {
	sys := simnet.NewDriver(3, time.Unix(0, 0))
	med := simnet.NewMedium()

	a := ntdcp.NewNode(1, ntdcp.WithNodeSystemDriver(sys))
	b := ntdcp.NewNode(2, ntdcp.WithNodeSystemDriver(sys))
	a.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))
	b.AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))

	var accepted *ntdcp.Socket
	if _, err := b.NewAcceptor(10, func(s *ntdcp.Socket) { accepted = s }); err != nil {
		t.Fatalf("NewAcceptor: %v", err)
	}
	client := a.NewSocket(300, 2, 10)
	client.Connect()

	pumpRounds(6, a, b)
	sys.Advance(300 * time.Millisecond)
	pumpRounds(6, a, b)
	if accepted == nil || accepted.State() != ntdcp.StateConnected {
		t.Fatalf("handshake did not complete")
	}

	accepted.Close()
	pumpRounds(6, b, a)

	if client.State() != ntdcp.StateClosed {
		t.Fatalf("client state=%v after server closed, want closed", client.State())
	}

	pumpRounds(6, a, b)
	if accepted.State() != ntdcp.StateClosed {
		t.Fatalf("server state=%v, want closed", accepted.State())
	}
}

func TestEndToEnd_LossyStressAcceptedSocketsMatchConnectAttempts(t *testing.T) {
	const nodeCount = 8
	const portsPerNode = 3

	sys := simnet.NewDriver(11, time.Unix(0, 0))
	med := simnet.NewMedium()

	nodes := make([]*ntdcp.Node, nodeCount)
	accepted := make([]int, nodeCount)
	for i := 0; i < nodeCount; i++ {
		idx := i
		nodes[i] = ntdcp.NewNode(ntdcp.Address(i+1), ntdcp.WithNodeSystemDriver(sys))
		nodes[i].AddPhysical(med.NewClient(sys, ntdcp.PhysicalOptions{}))
		for p := 0; p < portsPerNode; p++ {
			port := uint16(100 + p)
			if _, err := nodes[i].NewAcceptor(port, func(s *ntdcp.Socket) { accepted[idx]++ }); err != nil {
				t.Fatalf("NewAcceptor: %v", err)
			}
		}
	}

	connectAttempts := 0
	clientPort := uint16(500)
	for i := 0; i < nodeCount; i++ {
		neighbour := ntdcp.Address((i+1)%nodeCount + 1)
		for p := 0; p < portsPerNode; p++ {
			c := nodes[i].NewSocket(clientPort, neighbour, uint16(100+p))
			clientPort++
			c.Connect()
			connectAttempts++
		}
	}

	for tick := 0; tick < 60; tick++ {
		if tick%2 == 0 {
			med.SetBroken(true)
		} else {
			med.SetBroken(false)
		}
		for _, n := range nodes {
			n.Serve()
		}
		sys.Advance(50 * time.Millisecond)
	}
	med.SetBroken(false)
	// Heal window: give every retransmission a chance to land and every
	// force-ack to fire without further medium interruptions.
	for tick := 0; tick < 40; tick++ {
		for _, n := range nodes {
			n.Serve()
		}
		sys.Advance(50 * time.Millisecond)
	}

	total := 0
	for _, c := range accepted {
		total += c
	}
	if total != connectAttempts {
		t.Fatalf("accepted sockets=%d, want %d (one per connect() call)", total, connectAttempts)
	}
}
