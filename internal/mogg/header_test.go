package mogg

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le32(v ...uint32) []byte {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[4*i:], x)
	}
	return b
}

func seq(n int, start byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = start + byte(i)
	}
	return b
}

func TestParseHeaderFixedKeyLayout(t *testing.T) {
	var raw []byte
	raw = append(raw, le32(0x0B, 44, 0x10, 20000, 1)...)
	raw = append(raw, le32(0x100, 0x200)...)
	raw = append(raw, seq(16, 0)...)
	raw = append(raw, "OggS"...)

	h, p, err := ParseHeader(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, FixedKey, p.Version)
	assert.Equal(t, uint32(0x0B), h.Version)
	assert.Equal(t, uint64(44), h.PayloadOffset)
	assert.Equal(t, uint32(0x10), h.MapVersion)
	assert.Equal(t, uint32(20000), h.BufferSize)
	assert.Equal(t, []MapEntry{{Chunk: 0x100, Sample: 0x200}}, h.Map)
	assert.Equal(t, seq(16, 0), h.Nonce[:])
	assert.Zero(t, h.KeyBlockLength)
	assert.Nil(t, h.KeyBlock)
}

func TestParseHeaderMaskedLayout(t *testing.T) {
	var raw []byte
	raw = append(raw, le32(0x10, 20+16+16+32, 0x10, 20000, 2)...)
	raw = append(raw, le32(1, 2, 3, 4)...)
	raw = append(raw, seq(16, 0x40)...)
	raw = append(raw, seq(32, 0x80)...)
	raw = append(raw, seq(10, 0)...)

	h, p, err := ParseHeader(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, MaskedE, p.Version)
	assert.Equal(t, uint64(84), h.PayloadOffset)
	assert.Len(t, h.Map, 2)
	assert.Equal(t, seq(16, 0x40), h.Nonce[:])
	assert.Equal(t, uint32(52), h.KeyBlockOffset)
	assert.Equal(t, uint32(32), h.KeyBlockLength)
	assert.Equal(t, seq(32, 0x80), h.KeyBlock)
}

func TestParseHeaderUnencrypted(t *testing.T) {
	raw := append(le32(0x0A, 20, 0x10, 20000, 0), "OggS"...)
	h, p, err := ParseHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, Unencrypted, p.Version)
	assert.False(t, p.Encrypted())
	assert.Equal(t, uint64(20), h.PayloadOffset)
	assert.Equal(t, [NonceSize]byte{}, h.Nonce)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrMalformedHeader},
		{"shorter than prefix", le32(0x0A, 20, 0x10, 20000), ErrMalformedHeader},
		{"unknown tag", le32(0x42, 20, 0x10, 20000, 0), ErrUnsupportedVersion},
		{"zero tag", le32(0, 20, 0x10, 20000, 0), ErrUnsupportedVersion},
		{"tag after last masked revision", append(le32(0x11, 68, 0x10, 20000, 0), seq(48, 0)...), ErrUnsupportedVersion},
		{"map past end", le32(0x0A, 20, 0x10, 20000, 0x10000000), ErrMalformedHeader},
		{"nonce past end", append(le32(0x0B, 36, 0x10, 20000, 0), seq(8, 0)...), ErrMalformedHeader},
		{"key block past end", append(le32(0x0C, 68, 0x10, 20000, 0), seq(40, 0)...), ErrMalformedHeader},
		{"payload offset past end", le32(0x0A, 21, 0x10, 20000, 0), ErrTruncatedPayload},
		{"payload offset inside header", append(le32(0x0B, 20, 0x10, 20000, 0), seq(16, 0)...), ErrMalformedHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseHeader(bytes.NewReader(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseHeaderReportsTag(t *testing.T) {
	_, _, err := ParseHeader(bytes.NewReader(le32(0x42, 20, 0x10, 20000, 0)))
	var verr *VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, uint32(0x42), verr.Tag)
	assert.Contains(t, err.Error(), "0x42")
	assert.False(t, errors.Is(err, ErrMalformedHeader))
}

func TestHeaderEncode(t *testing.T) {
	for _, p := range Profiles() {
		t.Run(p.Version.String(), func(t *testing.T) {
			h := &Header{
				Version:    p.Tag,
				MapVersion: DefaultMapVersion,
				BufferSize: DefaultBufferSize,
				Map:        []MapEntry{{0, 0}, {4096, 20000}},
				KeyBlock:   seq(int(p.KeyBlockLength), 0x30),
			}
			copy(h.Nonce[:], seq(NonceSize, 0x90))
			if !p.HasNonce() {
				h.Nonce = [NonceSize]byte{}
			}
			if p.KeyBlockLength == 0 {
				h.KeyBlock = nil
			}

			var buf bytes.Buffer
			require.NoError(t, WriteHeader(&buf, h))
			assert.Equal(t, uint64(buf.Len()), h.PayloadOffset)
			assert.Equal(t, h.HeaderSize(p), h.PayloadOffset)

			got, gp, err := ParseHeader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, p.Version, gp.Version)
			assert.Equal(t, h.Map, got.Map)
			assert.Equal(t, h.Nonce, got.Nonce)
			assert.Equal(t, h.KeyBlockOffset, got.KeyBlockOffset)
			if p.KeyBlockLength > 0 {
				assert.Equal(t, h.KeyBlock, got.KeyBlock)
			}
		})
	}
}

func TestHeaderEncodeRejectsBadKeyBlock(t *testing.T) {
	_, err := (&Header{Version: 0x0C, KeyBlock: seq(5, 0)}).Encode()
	assert.Error(t, err)

	_, err = (&Header{Version: 0x99}).Encode()
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}
