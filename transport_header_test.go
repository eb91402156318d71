// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp_test

import (
	"bytes"
	"testing"

	"code.hybscloud.com/ntdcp"
)

func TestTransportDescription_RoundTrip(t *testing.T) {
	cases := []ntdcp.TransportDescription{
		{Type: ntdcp.TypeConnectionRequest, SourcePort: 1, DestinationPort: 10, MessageID: 1234},
		{Type: ntdcp.TypeDataTransfer, SourcePort: 300, DestinationPort: 1, MessageID: 1, AckForMessageID: 7, HasAck: true},
		{Type: ntdcp.TypeConnectionClose, SourcePort: 1, DestinationPort: 1},
		{Type: ntdcp.TypeConnectionCloseSubmit, SourcePort: 0xFF, DestinationPort: 0x1234, Repeat: 3},
	}
	payload := []byte("body")

	for _, d := range cases {
		wire := ntdcp.EncodeDescription(d, payload)
		got, rest, ok := ntdcp.DecodeDescription(wire)
		if !ok {
			t.Fatalf("DecodeDescription failed for %+v", d)
		}
		// SourceAddr/DestinationAddr are not part of the wire encoding;
		// they are filled in by the transport layer from the network
		// envelope, so zero them before comparing.
		got.SourceAddr, got.DestinationAddr = d.SourceAddr, d.DestinationAddr
		if got != d {
			t.Fatalf("round-trip mismatch: got %+v, want %+v", got, d)
		}
		if !bytes.Equal(rest, payload) {
			t.Fatalf("payload mismatch: got %q, want %q", rest, payload)
		}
	}
}

func TestTransportDescription_ImplicitPortOmitsBytes(t *testing.T) {
	implicit := ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 1, DestinationPort: 1}
	explicit := ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 2, DestinationPort: 2}

	wireImplicit := ntdcp.EncodeDescription(implicit, nil)
	wireExplicit := ntdcp.EncodeDescription(explicit, nil)
	if len(wireImplicit) >= len(wireExplicit) {
		t.Fatalf("port==1 should encode shorter than an explicit port: %d vs %d", len(wireImplicit), len(wireExplicit))
	}
}

func TestDecodeDescription_TruncatedInput(t *testing.T) {
	d := ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 300, DestinationPort: 400, MessageID: 1}
	wire := ntdcp.EncodeDescription(d, []byte("x"))
	headerLen := len(wire) - 1

	for n := 0; n < headerLen; n++ {
		if _, _, ok := ntdcp.DecodeDescription(wire[:n]); ok {
			t.Fatalf("DecodeDescription accepted a %d-byte prefix shorter than the %d-byte header", n, headerLen)
		}
	}
}

func TestDecodeDescription_ReservedPortBitsRejected(t *testing.T) {
	wire := ntdcp.EncodeDescription(ntdcp.TransportDescription{Type: ntdcp.TypeDataTransfer, SourcePort: 1, DestinationPort: 1}, nil)
	corrupted := append([]byte(nil), wire...)
	corrupted[0] = 0 // both port-size fields now reserved (0b00)
	if _, _, ok := ntdcp.DecodeDescription(corrupted); ok {
		t.Fatalf("DecodeDescription accepted reserved port-size bits")
	}
}
