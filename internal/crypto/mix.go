package crypto

import "math/bits"

// MaskedKeySize is the length of the scrambled key block carried by
// masked envelopes.
const MaskedKeySize = 32

// Recipe holds the per-version constants of the unmasking walk over an
// obfuscation table. Spread must be odd so that it permutes 16 positions.
//
// The walk and its constants are a reconstruction, not the historical
// unmasking routine: only the table layout is known. Provisioning the real
// key tables will not make real masked files decrypt.
type Recipe struct {
	Start  int
	Stride int
	Spread int
	Offset int
	Rotate int
}

// RevealKey recovers a cipher key from a scrambled key block.
//
//	work[i] = block[i] ^ table[pos] ^ table[(pos+n/2)%n]   (pos += Stride)
//	key[i]  = work[(i*Spread+Offset)&15] ^ rotl8(work[16+i], Rotate) ^ hv[i]
//
// block must hold MaskedKeySize bytes and hv at least 16. The table is only read.
func RevealKey(block, table, hv []byte, r Recipe) Key {
	var work [MaskedKeySize]byte
	walkTable(work[:], block, table, r)

	var key Key
	for i := range key {
		j := (i*r.Spread + r.Offset) & 15
		key[i] = work[j] ^ bits.RotateLeft8(work[16+i], r.Rotate) ^ hv[i]
	}
	return key
}

// HideKey is the inverse of RevealKey. tail fills the second half of the
// work buffer and may be any bytes; RevealKey recovers key regardless.
func HideKey(key Key, tail [16]byte, table, hv []byte, r Recipe) [MaskedKeySize]byte {
	var work [MaskedKeySize]byte
	copy(work[16:], tail[:])
	for i := range key {
		j := (i*r.Spread + r.Offset) & 15
		work[j] = key[i] ^ bits.RotateLeft8(work[16+i], r.Rotate) ^ hv[i]
	}

	var block [MaskedKeySize]byte
	walkTable(block[:], work[:], table, r)
	return block
}

// walkTable XORs src with the table walk into dst. It is its own inverse.
func walkTable(dst, src, table []byte, r Recipe) {
	n := len(table)
	half := n / 2
	pos := r.Start % n
	for i := range dst {
		dst[i] = src[i] ^ table[pos] ^ table[(pos+half)%n]
		pos = (pos + r.Stride) % n
	}
}
