// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ring implements the byte ring buffer the channel layer decodes
// from. It is a narrow, internal primitive kept out of the three core
// layers' packages since nothing above the channel layer needs to know
// its implementation.
package ring

// Buffer is a bounded FIFO byte buffer that supports random-access peeks
// into its unconsumed region without copying, which is what the channel
// decoder needs to scan for header magic bytes ahead of consuming them.
//
// Buffer is not safe for concurrent use; callers serialize access (the
// spec's single-threaded-cooperative serve() model).
type Buffer struct {
	data []byte
	cap  int
}

// New returns a Buffer that holds at most capacity bytes of unconsumed
// data. capacity <= 0 means unbounded.
func New(capacity int) *Buffer {
	return &Buffer{cap: capacity}
}

// Len returns the number of unconsumed bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the configured capacity, or 0 if unbounded.
func (b *Buffer) Cap() int { return b.cap }

// Write appends p to the buffer, dropping the tail of p once capacity is
// reached. It returns the number of bytes actually retained, mirroring a
// lossy physical medium rather than returning an error: backpressure here
// is "bytes get dropped", not "the call fails".
func (b *Buffer) Write(p []byte) int {
	if b.cap <= 0 {
		b.data = append(b.data, p...)
		return len(p)
	}
	room := b.cap - len(b.data)
	if room <= 0 {
		return 0
	}
	if room > len(p) {
		room = len(p)
	}
	b.data = append(b.data, p[:room]...)
	return room
}

// At returns the byte at offset pos within the unconsumed region, and
// whether pos was in range.
func (b *Buffer) At(pos int) (byte, bool) {
	if pos < 0 || pos >= len(b.data) {
		return 0, false
	}
	return b.data[pos], true
}

// Peek returns a view of the unconsumed region [off, off+n), or false if
// fewer than n bytes are available there. The returned slice aliases the
// buffer's storage and must not be retained past the next mutation.
func (b *Buffer) Peek(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, false
	}
	return b.data[off : off+n], true
}

// Advance discards the first n unconsumed bytes. n is clamped to Len().
func (b *Buffer) Advance(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	copy(b.data, b.data[n:])
	b.data = b.data[:len(b.data)-n]
}
