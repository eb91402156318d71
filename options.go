// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "time"

// TimeoutPolicy governs what a reliable socket does when a send task's
// retransmission window is exhausted without acknowledgement. Dropping a
// connection_request send task always promotes the socket to
// connection_timeout regardless of policy; this field only decides the
// fate of every other send task kind.
type TimeoutPolicy uint8

const (
	// PolicyBreakWhenTimeout promotes the socket to connection_timeout on
	// any send task's timeout, not only connection_request's. This is the
	// default: a peer that stops acknowledging is, in practice, gone.
	PolicyBreakWhenTimeout TimeoutPolicy = iota

	// PolicyDropWhenTimeout drops only the timed-out send task and leaves
	// the socket in its current state, exactly as described for
	// non-connection_request timeouts.
	PolicyDropWhenTimeout
)

// SocketOptions is the flat config record a reliable socket (and the
// acceptor that mints server-side sockets) carries.
type SocketOptions struct {
	Policy             TimeoutPolicy
	Timeout            time.Duration
	RetransmissionTime time.Duration
	ForceAckAfter      time.Duration
}

// DefaultSocketOptions returns {break_when_timeout, 10s, 1s, 200ms}.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		Policy:             PolicyBreakWhenTimeout,
		Timeout:            10 * time.Second,
		RetransmissionTime: time.Second,
		ForceAckAfter:      200 * time.Millisecond,
	}
}

// SocketOption configures a Socket or Acceptor at construction.
type SocketOption func(*SocketOptions)

// WithPolicy overrides the default timeout policy.
func WithPolicy(p TimeoutPolicy) SocketOption {
	return func(o *SocketOptions) { o.Policy = p }
}

// WithTimeout overrides how long a send task may go unacknowledged before
// it is dropped.
func WithTimeout(d time.Duration) SocketOption {
	return func(o *SocketOptions) { o.Timeout = d }
}

// WithRetransmissionTime overrides the minimum spacing between
// retransmissions of the same send task.
func WithRetransmissionTime(d time.Duration) SocketOption {
	return func(o *SocketOptions) { o.RetransmissionTime = d }
}

// WithForceAckAfter overrides how long an unpiggybacked ack waits before
// being sent on its own.
func WithForceAckAfter(d time.Duration) SocketOption {
	return func(o *SocketOptions) { o.ForceAckAfter = d }
}
