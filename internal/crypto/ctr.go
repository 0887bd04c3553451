package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"
)

// BlockSize is the counter-mode block size in bytes.
const BlockSize = aes.BlockSize

// Key is a raw 16-byte AES-128 key.
type Key [16]byte

// Stream is a seekable AES-128 counter-mode keystream.
// The counter for block b is the nonce, read as a 128-bit little-endian
// integer, plus b. No state is carried between calls.
type Stream struct {
	block cipher.Block
	nonce [BlockSize]byte
}

// NewStream keys a Stream with key and the per-file nonce.
func NewStream(key Key, nonce [BlockSize]byte) (*Stream, error) {
	b, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrap(err, "crypto: aes key")
	}
	return &Stream{block: b, nonce: nonce}, nil
}

// Counter returns nonce + index with little-endian carry across all 16 bytes.
func Counter(nonce [BlockSize]byte, index uint64) [BlockSize]byte {
	ctr := nonce
	var carry uint16
	for i := 0; i < BlockSize; i++ {
		add := uint16(index & 0xFF)
		index >>= 8
		sum := uint16(ctr[i]) + add + carry
		ctr[i] = byte(sum)
		carry = sum >> 8
		if index == 0 && carry == 0 {
			break
		}
	}
	return ctr
}

// KeystreamBlock writes the keystream for block index into dst.
func (s *Stream) KeystreamBlock(index uint64, dst *[BlockSize]byte) {
	ctr := Counter(s.nonce, index)
	s.block.Encrypt(dst[:], ctr[:])
}

// Transform XORs src into dst with the keystream starting at block
// blockIndex. A trailing partial block uses a truncated keystream block.
// Applying Transform twice with the same index restores the input.
func (s *Stream) Transform(blockIndex uint64, dst, src []byte) {
	s.xor(dst, src, blockIndex, 0)
}

// XORKeyStreamAt is Transform addressed by a byte offset into the payload.
// dst and src may overlap entirely.
func (s *Stream) XORKeyStreamAt(dst, src []byte, offset int64) {
	if offset < 0 {
		panic("crypto: negative keystream offset")
	}
	s.xor(dst, src, uint64(offset/BlockSize), int(offset%BlockSize))
}

func (s *Stream) xor(dst, src []byte, index uint64, skip int) {
	if len(dst) < len(src) {
		panic("crypto: output smaller than input")
	}
	var ks [BlockSize]byte
	for n := 0; n < len(src); index++ {
		s.KeystreamBlock(index, &ks)
		m := len(src) - n
		if m > BlockSize-skip {
			m = BlockSize - skip
		}
		for i := 0; i < m; i++ {
			dst[n+i] = src[n+i] ^ ks[skip+i]
		}
		n += m
		skip = 0
	}
}
