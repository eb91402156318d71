// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "encoding/binary"

// MessageType distinguishes the kinds of traffic a transport socket
// exchanges with its peer.
type MessageType uint8

const (
	TypeBroadcast MessageType = iota
	TypeConnectionRequest
	TypeConnectionSubmit
	TypeDataTransfer
	TypeConnectionClose
	TypeConnectionCloseSubmit
)

// TransportDescription is the logical header exchanged between peer
// transports. SourceAddr/DestinationAddr are not part of the wire
// encoding: they are filled in from the network layer's envelope on
// decode, and are not re-encoded on send (the network header already
// carries them).
type TransportDescription struct {
	SourceAddr      Address
	DestinationAddr Address
	SourcePort      uint16
	DestinationPort uint16

	Type MessageType

	MessageID       uint16
	AckForMessageID uint16
	HasAck          bool

	Repeat uint8
}

// portSizeBits returns the 2-bit port-size field for port: 0b01 when port
// is the implicit default of 1 (no following bytes), 0b10 for a
// single-byte port, 0b11 for a two-byte port. 0b00 is reserved and never
// produced by EncodeDescription.
func portSizeBits(port uint16) uint8 {
	switch {
	case port == 1:
		return 0b01
	case port <= 0xFF:
		return 0b10
	default:
		return 0b11
	}
}

func portByteLen(bits uint8) int {
	switch bits {
	case 0b01:
		return 0
	case 0b10:
		return 1
	case 0b11:
		return 2
	default:
		return -1
	}
}

// EncodeDescription appends the wire encoding of d in front of payload,
// returning the combined slice. Flag-byte bits, low to high: source port
// size (2), destination port size (2); bits 4-7 unused and always zero.
func EncodeDescription(d TransportDescription, payload []byte) []byte {
	srcBits := portSizeBits(d.SourcePort)
	dstBits := portSizeBits(d.DestinationPort)
	flag := srcBits | dstBits<<2

	hdrLen := 1 + 1 + 2 + 2 + 1 + 1 + portByteLen(srcBits) + portByteLen(dstBits)
	out := make([]byte, 0, hdrLen+len(payload))

	out = append(out, flag, byte(d.Type))

	var u16buf [2]byte
	binary.BigEndian.PutUint16(u16buf[:], d.MessageID)
	out = append(out, u16buf[:]...)
	binary.BigEndian.PutUint16(u16buf[:], d.AckForMessageID)
	out = append(out, u16buf[:]...)

	var hasAck byte
	if d.HasAck {
		hasAck = 1
	}
	out = append(out, hasAck, d.Repeat)

	if n := portByteLen(srcBits); n > 0 {
		out = putPort(out, d.SourcePort, n)
	}
	if n := portByteLen(dstBits); n > 0 {
		out = putPort(out, d.DestinationPort, n)
	}

	out = append(out, payload...)
	return out
}

func putPort(dst []byte, port uint16, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(port>>(8*uint(i))))
	}
	return dst
}

func readPort(src []byte, n int) (uint16, []byte, bool) {
	if n == 0 {
		return 1, src, true
	}
	if len(src) < n {
		return 0, src, false
	}
	var p uint16
	for i := 0; i < n; i++ {
		p = p<<8 | uint16(src[i])
	}
	return p, src[n:], true
}

// DecodeDescription parses a TransportDescription from the front of data.
// SourceAddr/DestinationAddr are left zero; callers fill them in from the
// network envelope. It reports false on any truncated or reserved-bits
// input, which callers treat as silently-dropped malformed input.
func DecodeDescription(data []byte) (TransportDescription, []byte, bool) {
	if len(data) < 8 {
		return TransportDescription{}, nil, false
	}
	flag := data[0]
	d := TransportDescription{Type: MessageType(data[1])}

	srcBits := flag & 0b11
	dstBits := (flag >> 2) & 0b11
	if srcBits == 0 || dstBits == 0 {
		return TransportDescription{}, nil, false
	}

	d.MessageID = binary.BigEndian.Uint16(data[2:4])
	d.AckForMessageID = binary.BigEndian.Uint16(data[4:6])
	d.HasAck = data[6] != 0
	d.Repeat = data[7]
	rest := data[8:]

	srcN := portByteLen(srcBits)
	dstN := portByteLen(dstBits)

	srcPort, rest, ok := readPort(rest, srcN)
	if !ok {
		return TransportDescription{}, nil, false
	}
	dstPort, rest, ok := readPort(rest, dstN)
	if !ok {
		return TransportDescription{}, nil, false
	}
	d.SourcePort = srcPort
	d.DestinationPort = dstPort

	return d, rest, true
}
