// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package physnet

import "errors"

var (
	// ErrInvalidArgument reports a nil connection or otherwise unusable
	// argument.
	ErrInvalidArgument = errors.New("physnet: invalid argument")

	// ErrClosed reports an operation on a StreamPhysical whose underlying
	// connection has already been closed.
	ErrClosed = errors.New("physnet: connection closed")
)
