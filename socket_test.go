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

// connectAndSubmit drives client through Connect and a synthetic
// connection_submit from serverPort, landing it in StateConnected. It
// returns the request's message id as seen on the wire, useful for
// callers that need to assert on ack plumbing.
func connectAndSubmit(t *testing.T, sys *simnet.Driver, client *ntdcp.Socket, serverPort, serverSubmitMessageID uint16) uint16 {
	t.Helper()
	if !client.Connect() {
		t.Fatalf("Connect() from not_connected should succeed")
	}
	desc, _, ok := client.PickOutgoing(sys.Now())
	if !ok || desc.Type != ntdcp.TypeConnectionRequest {
		t.Fatalf("PickOutgoing after Connect = %+v,%v, want a connection_request", desc, ok)
	}
	submit := ntdcp.TransportDescription{
		Type:            ntdcp.TypeConnectionSubmit,
		SourcePort:      serverPort,
		MessageID:       serverSubmitMessageID,
		HasAck:          true,
		AckForMessageID: desc.MessageID,
	}
	client.Receive(submit, nil)
	if client.State() != ntdcp.StateConnected {
		t.Fatalf("state=%v after connection_submit, want connected", client.State())
	}
	return desc.MessageID
}

func TestSocket_ConnectFromConnectedIsNoop(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10)
	connectAndSubmit(t, sys, s, 10, 999)

	if s.Connect() {
		t.Fatalf("Connect() from connected should be a documented no-op returning false")
	}
	if s.State() != ntdcp.StateConnected {
		t.Fatalf("state changed after a no-op Connect()")
	}
}

func TestSocket_OneInFlightSendRejectsSecond(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10)
	connectAndSubmit(t, sys, s, 10, 999)

	if !s.Send([]byte("first")) {
		t.Fatalf("first Send on a connected, idle socket should succeed")
	}
	if !s.Busy() {
		t.Fatalf("socket should be busy with an in-flight send task")
	}
	if s.Send([]byte("second")) {
		t.Fatalf("a second Send while busy must be rejected")
	}
}

func TestSocket_RetransmissionSchedule(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10, ntdcp.WithRetransmissionTime(time.Second))
	connectAndSubmit(t, sys, s, 10, 999)
	s.Send([]byte("x"))

	if _, _, ok := s.PickOutgoing(sys.Now()); !ok {
		t.Fatalf("first PickOutgoing after Send should yield the send task")
	}
	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("PickOutgoing before retransmission_time elapses must not resend")
	}
	sys.Advance(time.Second + time.Millisecond)
	if _, _, ok := s.PickOutgoing(sys.Now()); !ok {
		t.Fatalf("PickOutgoing after retransmission_time elapses should resend")
	}
}

func TestSocket_ConnectionRequestTimeoutIsTerminal(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10, ntdcp.WithTimeout(100*time.Millisecond))
	s.Connect()

	sys.Advance(101 * time.Millisecond)
	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("a timed-out connection_request should not be retransmitted")
	}
	if s.State() != ntdcp.StateConnectionTimeout {
		t.Fatalf("state=%v, want connection_timeout", s.State())
	}

	// connection_timeout is terminal and silent.
	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("connection_timeout must never produce outgoing traffic")
	}
}

func TestSocket_DataSendTimeoutWithDropPolicyStaysConnected(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10,
		ntdcp.WithTimeout(50*time.Millisecond),
		ntdcp.WithPolicy(ntdcp.PolicyDropWhenTimeout),
	)
	connectAndSubmit(t, sys, s, 10, 999)
	s.Send([]byte("x"))

	sys.Advance(51 * time.Millisecond)
	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("timed-out send task must not be retransmitted")
	}
	if s.State() != ntdcp.StateConnected {
		t.Fatalf("state=%v, want connected (drop_when_timeout leaves the socket as-is)", s.State())
	}
	if s.Busy() {
		t.Fatalf("the timed-out send task should have been dropped")
	}
}

func TestSocket_DuplicateMessageReAcksButIsNotRedelivered(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10)
	connectAndSubmit(t, sys, s, 10, 999)

	data := ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 10, MessageID: 1}
	s.Receive(data, []byte("payload"))
	if !s.HasData() {
		t.Fatalf("first delivery of message_id 1 should be queued")
	}
	buf, _ := s.GetReceived()
	if string(buf) != "payload" {
		t.Fatalf("GetReceived=%q, want payload", buf)
	}

	s.Receive(data, []byte("payload"))
	if s.HasData() {
		t.Fatalf("a duplicate (message_id <= last_received) must not be redelivered")
	}
}

func TestSocket_MissedFromRemoteCounts(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10)
	connectAndSubmit(t, sys, s, 10, 999)

	s.Receive(ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 10, MessageID: 3}, []byte("x"))
	if s.MissedFromRemote() != 2 {
		t.Fatalf("missed_from_remote=%d, want 2 (messages 1 and 2 were skipped)", s.MissedFromRemote())
	}
}

func TestSocket_CloseIdempotentAndNoopExceptFromConnected(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10)

	s.Close() // not_connected: documented no-op
	if s.State() != ntdcp.StateNotConnected {
		t.Fatalf("Close() from not_connected must be a no-op")
	}

	connectAndSubmit(t, sys, s, 10, 999)
	s.Close()
	if s.State() != ntdcp.StateClosed {
		t.Fatalf("Close() from connected should move to closed")
	}
	s.Close() // idempotent
	if s.State() != ntdcp.StateClosed {
		t.Fatalf("a second Close() must be idempotent")
	}
}

func TestSocket_ForceAckSentOnceAfterForceAckAfter(t *testing.T) {
	sys := simnet.NewDriver(1, time.Unix(0, 0))
	s := ntdcp.NewSocket(sys, 300, 321, 10, ntdcp.WithForceAckAfter(200*time.Millisecond))
	connectAndSubmit(t, sys, s, 10, 999)

	s.Receive(ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 10, MessageID: 1}, []byte("x"))

	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("an ack should not be force-sent before force_ack_after elapses")
	}
	sys.Advance(201 * time.Millisecond)
	desc, buf, ok := s.PickOutgoing(sys.Now())
	if !ok || !desc.HasAck || desc.AckForMessageID != 1 || len(buf) != 0 {
		t.Fatalf("PickOutgoing=%+v,%q,%v, want a forced ack for message 1 with an empty buffer", desc, buf, ok)
	}
	if _, _, ok := s.PickOutgoing(sys.Now()); ok {
		t.Fatalf("a force-sent ack must not be sent twice")
	}
}
