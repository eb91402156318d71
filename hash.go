// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

// hashLy is the deterministic linear-congruential byte hash used as the
// channel-frame checksum: h' = 1664525*h + b + 1013904223, applied to each
// body byte in order starting from h0 = 0.
//
// It is not cryptographic; it exists to catch accidental corruption and
// spurious magic-byte matches during channel resync, not to defend against
// a malicious peer.
func hashLy(body []byte) uint32 {
	var h uint32
	for _, b := range body {
		h = h*1664525 + uint32(b) + 1013904223
	}
	return h
}
