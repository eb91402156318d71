// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ntdcp

// Address identifies a node on the network layer. The wire format allows
// 1 to 4 bytes; Address itself is kept as a plain uint64 so callers never
// have to think about the encoded width, which is chosen automatically by
// the smallest value that fits.
type Address uint64

// Broadcast is the reserved 1-byte broadcast address. It is always
// acceptable in addition to a node's own address.
const Broadcast Address = 0xFF

// acceptable reports whether addr is locally deliverable on a node whose
// own address is own: either an exact match or the broadcast address.
func acceptable(own, addr Address) bool {
	return addr == own || addr == Broadcast
}

// addrSizeBits returns the 2-bit field encoding addr's width in the
// network header: 0 means 1 byte, 1 means 2 bytes, 2 means 3 bytes, 3
// means 4 bytes.
func addrSizeBits(addr Address) uint8 {
	switch {
	case addr <= 0xFF:
		return 0
	case addr <= 0xFFFF:
		return 1
	case addr <= 0xFFFFFF:
		return 2
	default:
		return 3
	}
}

// addrByteLen returns the number of bytes addrSizeBits(addr) encodes.
func addrByteLen(sizeBits uint8) int {
	return int(sizeBits) + 1
}

// putAddr appends addr to dst, big-endian, using n bytes.
func putAddr(dst []byte, addr Address, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, byte(addr>>(8*uint(i))))
	}
	return dst
}

// readAddr reads an n-byte big-endian address from the front of src,
// returning the address and the remaining slice.
func readAddr(src []byte, n int) (Address, []byte, bool) {
	if len(src) < n {
		return 0, src, false
	}
	var a Address
	for i := 0; i < n; i++ {
		a = a<<8 | Address(src[i])
	}
	return a, src[n:], true
}
