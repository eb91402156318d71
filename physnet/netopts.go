// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package physnet

import (
	"time"

	"code.hybscloud.com/ntdcp"
)

// Named transport presets for ntdcp.PhysicalOptions: a single-source-of-
// truth table mapping a transport kind onto its duplex class and timing,
// so a transport kind determines how the network layer should model the
// medium it rides on, not how bytes are length-prefixed.
//
//   - TCP/Unix stream/local pipe: full duplex, negligible tx/dead time.
//   - A half-duplex serial or radio link: bounded by its baud rate and
//     turnaround time, so callers size TxTime/TxToRxTime from the link's
//     own characteristics; TCPOptions-style helpers cannot guess those.

// TCPOptions returns the PhysicalOptions a TCP-backed StreamPhysical
// should report: full duplex, no artificial tx/turnaround delay, a
// generous ring buffer since the kernel already buffers the socket.
func TCPOptions() ntdcp.PhysicalOptions {
	return ntdcp.PhysicalOptions{
		Duplex:         ntdcp.FullDuplex,
		RetransmitBack: false,
		RingBufferSize: 64 * 1024,
	}
}

// UnixOptions returns the PhysicalOptions for a Unix domain stream
// socket: identical to TCPOptions, the distinction matters only at
// dial/listen time.
func UnixOptions() ntdcp.PhysicalOptions { return TCPOptions() }

// LocalPipeOptions returns the PhysicalOptions for an in-process
// io.Pipe-backed StreamPhysical, as used by tests that want the channel
// and network layers exercised over a real byte stream without a real
// socket.
func LocalPipeOptions() ntdcp.PhysicalOptions {
	return ntdcp.PhysicalOptions{
		Duplex:         ntdcp.FullDuplex,
		RingBufferSize: 16 * 1024,
	}
}

// HalfDuplexSerialOptions returns the PhysicalOptions for a half-duplex
// serial or radio link: txTime is how long sending one frame occupies
// the link, txToRxTime the dead time before the link can listen again.
func HalfDuplexSerialOptions(txTime, txToRxTime time.Duration) ntdcp.PhysicalOptions {
	return ntdcp.PhysicalOptions{
		Duplex:         ntdcp.HalfDuplex,
		TxTime:         txTime,
		TxToRxTime:     txToRxTime,
		RingBufferSize: 4096,
	}
}
