// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

import "errors"

var (
	// ErrInvalidArgument reports a nil or otherwise unusable argument.
	ErrInvalidArgument = errors.New("ntdcp: invalid argument")

	// ErrTooLong reports that a frame, header or physical-interface chunk
	// exceeds a configured or wire-format limit.
	ErrTooLong = errors.New("ntdcp: message too long")

	// ErrBusy reports that a reliable socket already has an in-flight send
	// task and cannot accept another send() until it is acknowledged or
	// times out.
	ErrBusy = errors.New("ntdcp: socket busy")

	// ErrAcceptorExists reports that a port already has an acceptor
	// registered; exactly one acceptor may listen per port.
	ErrAcceptorExists = errors.New("ntdcp: acceptor already registered for port")

	// ErrNoPhysical reports that a physical interface was never attached to
	// the network layer that is being asked to send or serve.
	ErrNoPhysical = errors.New("ntdcp: no physical interface attached")
)
