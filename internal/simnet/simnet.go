// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package simnet is the in-process virtual medium and deterministic
// system driver used to exercise the core networking stack end to end in
// tests. Both are explicitly out of the core per spec.md §1 ("the
// pluggable physical interface (including the in-process virtual medium
// used for tests)" and the pluggable clock/random source); this package
// is the test harness, not part of the shipping stack.
package simnet

import (
	"math/rand"
	"sync"
	"time"

	"code.hybscloud.com/ntdcp"
	"code.hybscloud.com/ntdcp/internal/ring"
)

// Driver is a deterministic ntdcp.SystemDriver: a seeded PRNG and a clock
// that only advances when told to, so tests get reproducible package ids,
// message ids, and timeout behavior.
type Driver struct {
	mu  sync.Mutex
	now time.Time
	rnd *rand.Rand
}

// NewDriver returns a Driver seeded with seed, with its clock starting at
// start.
func NewDriver(seed int64, start time.Time) *Driver {
	return &Driver{now: start, rnd: rand.New(rand.NewSource(seed))}
}

// Random implements ntdcp.SystemDriver.
func (d *Driver) Random() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rnd.Uint32()
}

// Now implements ntdcp.SystemDriver.
func (d *Driver) Now() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Advance moves the clock forward by dt.
func (d *Driver) Advance(dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = d.now.Add(dt)
}

// Set pins the clock at t.
func (d *Driver) Set(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = t
}

// Medium is a shared, broadcast, in-process physical bus: every byte one
// Client sends is written into every other attached Client's ring buffer
// immediately, unless Broken is set, which silently drops all in-flight
// sends (the "medium gone bad" test hook spec.md §5 describes).
//
// Medium itself is not a PhysicalInterface; each Client it mints is one.
type Medium struct {
	mu      sync.Mutex
	clients []*Client
	broken  bool
}

// NewMedium returns an empty, healthy Medium.
func NewMedium() *Medium { return &Medium{} }

// SetBroken flips the medium's broken flag. While broken, every Client's
// Send is accepted (so callers observe normal Busy/backpressure
// semantics) but the bytes never reach any peer.
func (m *Medium) SetBroken(broken bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken = broken
}

// Client is one node's attachment point to a Medium: an
// ntdcp.PhysicalInterface backed by an in-memory ring buffer that the
// Medium writes into on every other client's behalf.
type Client struct {
	medium *Medium
	sys    ntdcp.SystemDriver
	opts   ntdcp.PhysicalOptions

	rbuf      *ring.Buffer
	busyUntil time.Time
}

// NewClient attaches a new Client to m, using sys for its clock and opts
// to describe its duplex class and timing to the network layer.
func (m *Medium) NewClient(sys ntdcp.SystemDriver, opts ntdcp.PhysicalOptions) *Client {
	c := &Client{medium: m, sys: sys, opts: opts, rbuf: ring.New(opts.RingBufferSize)}
	m.mu.Lock()
	m.clients = append(m.clients, c)
	m.mu.Unlock()
	return c
}

// Incoming implements ntdcp.PhysicalInterface.
func (c *Client) Incoming() *ring.Buffer { return c.rbuf }

// Options implements ntdcp.PhysicalInterface.
func (c *Client) Options() ntdcp.PhysicalOptions { return c.opts }

// Busy implements ntdcp.PhysicalInterface: true for opts.TxTime after the
// start of the most recent Send.
func (c *Client) Busy() bool { return c.sys.Now().Before(c.busyUntil) }

// Send implements ntdcp.PhysicalInterface: frame is broadcast to every
// other Client on the same Medium, dropped entirely if the medium is
// broken.
func (c *Client) Send(frame []byte) {
	now := c.sys.Now()
	c.busyUntil = now.Add(c.opts.TxTime)

	c.medium.mu.Lock()
	defer c.medium.mu.Unlock()
	if c.medium.broken {
		return
	}
	for _, peer := range c.medium.clients {
		if peer == c {
			continue
		}
		peer.rbuf.Write(frame)
	}
}
