// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"encoding/binary"

	"code.hybscloud.com/ntdcp/internal/ring"
)

const (
	channelMagic     uint16 = 0x00AB
	channelHeaderLen        = 2 + 2 + 4 // magic + size + checksum, little-endian, packed
)

// Frame is a decoded channel payload, owned (copied out of the ring
// buffer it was decoded from).
type Frame struct {
	Body []byte
}

// EncodeFrame returns the wire bytes for a channel frame carrying payload:
// a 0x00AB magic, the payload length, and a hashLy checksum over the
// payload, all little-endian and packed without padding.
func EncodeFrame(payload []byte) []byte {
	out := make([]byte, channelHeaderLen+len(payload))
	binary.LittleEndian.PutUint16(out[0:2], channelMagic)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(payload)))
	binary.LittleEndian.PutUint32(out[4:8], hashLy(payload))
	copy(out[8:], payload)
	return out
}

// decodingInstance describes a candidate frame header found while
// scanning the ring buffer: byte offsets are relative to the ring's
// current unconsumed front.
type decodingInstance struct {
	headerOffset int
	bodyBegin    int
	size         int
	checksum     uint32
}

// Channel frames arbitrary payloads into self-delimited records and
// decodes them back out of a byte ring buffer, resynchronizing past
// corruption and spurious header matches.
//
// A Channel is not safe for concurrent use; it is driven exclusively from
// the serve() thread, same as the layers built on top of it.
type Channel struct {
	instances []decodingInstance
	scanPos   int
}

// Decode scans r for complete, checksum-valid frames and returns every one
// that can be decoded in this call, in arrival order. The returned slice
// may be empty. Decode is the only place frame state survives across
// calls: unconsumed ring bytes and partially-seen headers remain pending
// for the next call.
func (c *Channel) Decode(r *ring.Buffer) []Frame {
	var out []Frame
	for {
		c.scanForHeaders(r)

		idx, ok := c.earliestComplete(r)
		if !ok {
			return out
		}

		inst := c.instances[idx]
		body, _ := r.Peek(inst.bodyBegin, inst.size)
		if hashLy(body) == inst.checksum {
			frame := make([]byte, inst.size)
			copy(frame, body)
			out = append(out, Frame{Body: frame})
			c.consume(inst.bodyBegin + inst.size, r)
			continue
		}

		// Checksum mismatch: the header was noise. Drop only this
		// instance and keep looking; scanPos already sits past its
		// header so it will not be rediscovered.
		c.instances = append(c.instances[:idx], c.instances[idx+1:]...)
	}
}

// scanForHeaders extends c.instances with every new candidate header found
// between c.scanPos and the last position that can still hold a full
// header, given the bytes currently in r.
func (c *Channel) scanForHeaders(r *ring.Buffer) {
	for c.scanPos+channelHeaderLen <= r.Len() {
		hdr, ok := r.Peek(c.scanPos, channelHeaderLen)
		if !ok {
			return
		}
		if binary.LittleEndian.Uint16(hdr[0:2]) == channelMagic {
			size := int(binary.LittleEndian.Uint16(hdr[2:4]))
			checksum := binary.LittleEndian.Uint32(hdr[4:8])
			if r.Cap() <= 0 || size <= r.Cap() {
				c.instances = append(c.instances, decodingInstance{
					headerOffset: c.scanPos,
					bodyBegin:    c.scanPos + channelHeaderLen,
					size:         size,
					checksum:     checksum,
				})
			}
		}
		c.scanPos++
	}
}

// earliestComplete returns the index, within c.instances, of the
// earliest-offset instance whose full body has arrived in r.
func (c *Channel) earliestComplete(r *ring.Buffer) (int, bool) {
	best := -1
	for i, inst := range c.instances {
		if r.Len() < inst.bodyBegin+inst.size {
			continue
		}
		if best == -1 || c.instances[i].headerOffset < c.instances[best].headerOffset {
			best = i
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

// consume advances r past the just-decoded frame, drops every decoding
// instance whose header fell inside the consumed prefix, and rebases the
// remaining offsets (including scanPos) onto the new ring front.
func (c *Channel) consume(n int, r *ring.Buffer) {
	r.Advance(n)

	kept := c.instances[:0]
	for _, inst := range c.instances {
		if inst.headerOffset < n {
			continue
		}
		inst.headerOffset -= n
		inst.bodyBegin -= n
		kept = append(kept, inst)
	}
	c.instances = kept

	c.scanPos -= n
	if c.scanPos < 0 {
		c.scanPos = 0
	}
}
