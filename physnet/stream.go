// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package physnet adapts a byte-stream transport (a TCP/Unix connection,
// an io.Pipe, a serial port) into the ntdcp.PhysicalInterface contract
// the network layer consumes. It reuses a non-blocking retry idiom built
// on code.hybscloud.com/iox's ErrWouldBlock/ErrMore sentinels, but
// carries no framing of its own: the channel layer above it (root
// package, channel.go) already self-delimits frames with a magic number
// and checksum, so this package only ever moves opaque bytes in and out
// of a ring buffer.
package physnet

import (
	"io"
	"runtime"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/ntdcp"
	"code.hybscloud.com/ntdcp/internal/ring"
)

// StreamPhysical adapts conn into an ntdcp.PhysicalInterface. It is
// driven by periodic Pump calls from the same thread that calls the
// owning Node's Serve, mirroring the channel/network layers'
// single-threaded-cooperative model: Pump never blocks indefinitely
// unless the caller explicitly opted into WithBlock.
type StreamPhysical struct {
	conn io.ReadWriter
	sys  ntdcp.SystemDriver
	opts ntdcp.PhysicalOptions
	io   Options

	rbuf *ring.Buffer

	readScratch []byte

	writeInFlight []byte
	writeOff      int

	busyUntil   time.Time
	rxResumeAt  time.Time
}

// NewStreamPhysical returns a StreamPhysical relaying bytes over conn.
// netOpts describes the medium (duplex class, timing) the network layer
// should assume; opts tune this adapter's own non-blocking behavior.
func NewStreamPhysical(conn io.ReadWriter, sys ntdcp.SystemDriver, netOpts ntdcp.PhysicalOptions, opts ...Option) *StreamPhysical {
	o := defaultOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &StreamPhysical{
		conn:        conn,
		sys:         sys,
		opts:        netOpts,
		io:          o,
		rbuf:        ring.New(netOpts.RingBufferSize),
		readScratch: make([]byte, o.ReadChunkSize),
	}
}

// Incoming implements ntdcp.PhysicalInterface.
func (s *StreamPhysical) Incoming() *ring.Buffer { return s.rbuf }

// Options implements ntdcp.PhysicalInterface.
func (s *StreamPhysical) Options() ntdcp.PhysicalOptions { return s.opts }

// Busy implements ntdcp.PhysicalInterface: true while a previous Send is
// still being written out, or while TxTime since the last completed send
// has not yet elapsed.
func (s *StreamPhysical) Busy() bool {
	if s.writeInFlight != nil {
		return true
	}
	return s.sys.Now().Before(s.busyUntil)
}

// Send implements ntdcp.PhysicalInterface. The network layer only calls
// this when Busy reports false, so writeInFlight is always empty here.
func (s *StreamPhysical) Send(frame []byte) {
	s.writeInFlight = frame
	s.writeOff = 0
}

// Pump drives one tick of non-blocking I/O: it advances any in-flight
// send, then reads whatever is available from the connection into the
// ring buffer (unless a half-duplex link is still in its post-tx dead
// time). Callers invoke Pump once per physical interface before each
// Node.Serve call.
func (s *StreamPhysical) Pump(now time.Time) error {
	if s.writeInFlight != nil {
		done, err := s.advanceWrite(now)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
	}

	if s.opts.Duplex == ntdcp.HalfDuplex && now.Before(s.rxResumeAt) {
		return nil
	}

	n, err := s.readOnce(s.readScratch)
	if n > 0 {
		s.rbuf.Write(s.readScratch[:n])
	}
	if err != nil && err != iox.ErrWouldBlock && err != iox.ErrMore && err != io.EOF {
		return err
	}
	return nil
}

func (s *StreamPhysical) advanceWrite(now time.Time) (done bool, err error) {
	for s.writeOff < len(s.writeInFlight) {
		n, werr := s.conn.Write(s.writeInFlight[s.writeOff:])
		s.writeOff += n
		if werr != nil {
			if werr == iox.ErrWouldBlock {
				if !s.waitOnceOnWouldBlock() {
					return false, nil
				}
				continue
			}
			s.writeInFlight = nil
			return false, werr
		}
		if n == 0 {
			return false, io.ErrShortWrite
		}
	}
	s.writeInFlight = nil
	s.busyUntil = now.Add(s.opts.TxTime)
	s.rxResumeAt = s.busyUntil.Add(s.opts.TxToRxTime)
	return true, nil
}

func (s *StreamPhysical) readOnce(p []byte) (n int, err error) {
	for {
		n, err = s.conn.Read(p)
		if n > 0 {
			return n, err
		}
		if err != iox.ErrWouldBlock {
			return n, err
		}
		if !s.waitOnceOnWouldBlock() {
			return n, err
		}
	}
}

// waitOnceOnWouldBlock implements the configured retry policy: nonblock
// (the default) returns immediately, block mode yields or sleeps once
// before the caller retries.
func (s *StreamPhysical) waitOnceOnWouldBlock() bool {
	if s.io.RetryDelay < 0 {
		return false
	}
	if s.io.RetryDelay == 0 {
		runtime.Gosched()
		return true
	}
	time.Sleep(s.io.RetryDelay)
	return true
}
