// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// SystemDriver is the pluggable clock and random source the core consumes.
// Production code uses defaultSystemDriver; tests use the simnet package's
// deterministic driver so that timeouts and package/message ids are
// reproducible.
//
// Go's sync.Mutex already satisfies a generic "create a lock" contract,
// so SystemDriver does not mint locks itself.
type SystemDriver interface {
	// Random returns a 32-bit random value. It may be zero.
	Random() uint32

	// Now returns the current time on a monotonic clock.
	Now() time.Time
}

// RandomNonzero draws values from sys until it gets a nonzero 16-bit id,
// the domain every package id and message id is drawn from.
func RandomNonzero(sys SystemDriver) uint16 {
	for {
		if v := uint16(sys.Random()); v != 0 {
			return v
		}
	}
}

// defaultSystemDriver is the production SystemDriver: crypto/rand for
// package/message id generation (strong enough to avoid near-term reuse)
// and time.Now for the clock.
type defaultSystemDriver struct{}

// NewSystemDriver returns the production SystemDriver.
func NewSystemDriver() SystemDriver { return defaultSystemDriver{} }

func (defaultSystemDriver) Random() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the OS entropy source is broken; a
		// node with no usable random source cannot safely originate
		// package ids, so this is the one place the core panics.
		panic("ntdcp: system random source unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (defaultSystemDriver) Now() time.Time { return time.Now() }
