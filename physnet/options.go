// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package physnet

import "time"

// Options configures a StreamPhysical's non-blocking retry behavior and
// read buffering. There is no byte-order or protocol field to configure
// here: the bytes StreamPhysical moves are already self-delimited
// channel frames (see the root package's channel.go), so this package
// never parses a header of its own.
type Options struct {
	// RetryDelay controls how Pump handles iox.ErrWouldBlock from the
	// underlying connection:
	//   - negative: nonblock, return immediately (the default)
	//   - zero: yield (runtime.Gosched) and retry within the same Pump,
	//     repeating until the operation no longer returns ErrWouldBlock
	//   - positive: sleep for the duration and retry, repeating the same way
	RetryDelay time.Duration

	// ReadChunkSize bounds how many bytes a single Pump call reads from
	// the connection into the ring buffer.
	ReadChunkSize int
}

var defaultOptions = Options{
	RetryDelay:    -1,
	ReadChunkSize: 4096,
}

type Option func(*Options)

// WithRetryDelay sets the retry/wait policy used when the underlying
// connection returns iox.ErrWouldBlock.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) { o.RetryDelay = d }
}

// WithBlock makes Pump yield and retry on iox.ErrWouldBlock, repeatedly,
// instead of returning immediately.
func WithBlock() Option {
	return func(o *Options) { o.RetryDelay = 0 }
}

// WithNonblock forces non-blocking behavior (the default): a Pump call
// that hits iox.ErrWouldBlock returns immediately, to be retried on the
// next scheduled tick.
func WithNonblock() Option {
	return func(o *Options) { o.RetryDelay = -1 }
}

// WithReadChunkSize overrides the per-Pump read size.
func WithReadChunkSize(n int) Option {
	return func(o *Options) { o.ReadChunkSize = n }
}
