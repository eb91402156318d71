// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "encoding/binary"

// PackageID is the nonzero 16-bit identifier the originator assigns a
// network-layer packet, used for duplicate suppression.
type PackageID uint16

// NetworkHeader is the network layer's variable-length wire header: a
// bitfield byte, an optional extended hop-limit byte, a package id, and
// the source/destination addresses, each sized to fit their value.
type NetworkHeader struct {
	Source      Address
	Destination Address
	PackageID   PackageID
	HopLimit    uint8
}

// EncodeHeader returns a new slice holding header, wire-encoded, followed
// by a copy of payload.
func EncodeHeader(header NetworkHeader, payload []byte) []byte {
	srcBits := addrSizeBits(header.Source)
	dstBits := addrSizeBits(header.Destination)

	var hopBits uint8
	extended := header.HopLimit >= 0xF
	if extended {
		hopBits = 0xF
	} else {
		hopBits = header.HopLimit
	}

	flag := srcBits | dstBits<<2 | hopBits<<4

	hdrLen := 1 + 2 + addrByteLen(srcBits) + addrByteLen(dstBits)
	if extended {
		hdrLen++
	}

	out := make([]byte, 0, hdrLen+len(payload))
	out = append(out, flag)
	if extended {
		out = append(out, header.HopLimit)
	}
	var idBuf [2]byte
	binary.LittleEndian.PutUint16(idBuf[:], uint16(header.PackageID))
	out = append(out, idBuf[:]...)
	out = putAddr(out, header.Source, addrByteLen(srcBits))
	out = putAddr(out, header.Destination, addrByteLen(dstBits))
	out = append(out, payload...)
	return out
}

// DecodeHeader parses a NetworkHeader from the front of data, returning
// the header and the remaining payload. It reports false on any truncated
// or otherwise malformed input; malformed network headers are silently
// dropped by callers, never treated as errors.
func DecodeHeader(data []byte) (NetworkHeader, []byte, bool) {
	if len(data) < 1 {
		return NetworkHeader{}, nil, false
	}
	flag := data[0]
	rest := data[1:]

	srcBits := flag & 0x03
	dstBits := (flag >> 2) & 0x03
	hopBits := flag >> 4

	var hop uint8
	if hopBits == 0xF {
		if len(rest) < 1 {
			return NetworkHeader{}, nil, false
		}
		hop = rest[0]
		rest = rest[1:]
	} else {
		hop = hopBits
	}

	if len(rest) < 2 {
		return NetworkHeader{}, nil, false
	}
	id := PackageID(binary.LittleEndian.Uint16(rest[0:2]))
	rest = rest[2:]

	src, rest, ok := readAddr(rest, addrByteLen(srcBits))
	if !ok {
		return NetworkHeader{}, nil, false
	}
	dst, rest, ok := readAddr(rest, addrByteLen(dstBits))
	if !ok {
		return NetworkHeader{}, nil, false
	}

	return NetworkHeader{
		Source:      src,
		Destination: dst,
		PackageID:   id,
		HopLimit:    hop,
	}, rest, true
}
