// Package mogg parses MOGG envelopes and derives their cipher keys.
package mogg

import (
	"encoding/binary"
	"io"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
)

const (
	// PrefixSize is the fixed part of every envelope header.
	PrefixSize   = 20
	NonceSize    = 16
	mapEntrySize = 8

	// DefaultMapVersion and DefaultBufferSize are the values shipped titles write.
	DefaultMapVersion = 0x10
	DefaultBufferSize = 20000
)

// MapEntry is one row of the OGG seek table carried in the envelope.
type MapEntry struct {
	Chunk  uint32
	Sample uint32
}

type prefix struct {
	Version    uint32
	OggOffset  uint32
	MapVersion uint32
	BufferSize uint32
	MapCount   uint32
}

type envelope struct {
	Version    uint32
	OggOffset  uint32
	MapVersion uint32
	BufferSize uint32
	MapCount   uint32 `struct:"uint32,sizeof=Map"`
	Map        []MapEntry
}

// Header is a decoded envelope header.
type Header struct {
	Version       uint32
	PayloadOffset uint64
	MapVersion    uint32
	BufferSize    uint32
	Map           []MapEntry

	// Nonce is the initial counter; zero for unencrypted revisions.
	Nonce [NonceSize]byte

	// KeyBlockOffset and KeyBlockLength locate the embedded key block.
	// Both are zero when the revision has none.
	KeyBlockOffset uint32
	KeyBlockLength uint32
	KeyBlock       []byte
}

// HeaderSize is the encoded size of the header region for profile p.
func (h *Header) HeaderSize(p Profile) uint64 {
	end := uint64(PrefixSize) + uint64(len(h.Map))*mapEntrySize
	if p.HasNonce() {
		end += NonceSize
	}
	return end + uint64(p.KeyBlockLength)
}

// ParseHeader reads and validates the envelope header of src.
func ParseHeader(src Source) (*Header, Profile, error) {
	size := src.Size()
	if size < PrefixSize {
		return nil, Profile{}, errors.Wrapf(ErrMalformedHeader, "%d bytes, need at least %d", size, PrefixSize)
	}

	buf := make([]byte, PrefixSize)
	if err := readFull(src, buf, 0); err != nil {
		return nil, Profile{}, errors.Wrap(err, "mogg: read header")
	}
	var pre prefix
	if err := restruct.Unpack(buf, binary.LittleEndian, &pre); err != nil {
		return nil, Profile{}, errors.Wrapf(ErrMalformedHeader, "decode prefix: %v", err)
	}

	profile, err := LookupTag(pre.Version)
	if err != nil {
		return nil, Profile{}, err
	}

	mapEnd := uint64(PrefixSize) + uint64(pre.MapCount)*mapEntrySize
	end := mapEnd + uint64(profile.KeyBlockLength)
	if profile.HasNonce() {
		end += NonceSize
	}
	if end > uint64(size) {
		return nil, Profile{}, errors.Wrapf(ErrMalformedHeader,
			"header region of %d bytes (%d map entries) exceeds %d byte source", end, pre.MapCount, size)
	}
	if uint64(pre.OggOffset) > uint64(size) {
		return nil, Profile{}, errors.Wrapf(ErrTruncatedPayload,
			"payload offset %d beyond %d byte source", pre.OggOffset, size)
	}
	if uint64(pre.OggOffset) < end {
		return nil, Profile{}, errors.Wrapf(ErrMalformedHeader,
			"payload offset %d inside %d byte header region", pre.OggOffset, end)
	}

	buf = make([]byte, end)
	if err := readFull(src, buf, 0); err != nil {
		return nil, Profile{}, errors.Wrap(err, "mogg: read header")
	}
	var env envelope
	if err := restruct.Unpack(buf[:mapEnd], binary.LittleEndian, &env); err != nil {
		return nil, Profile{}, errors.Wrapf(ErrMalformedHeader, "decode map: %v", err)
	}

	h := &Header{
		Version:       env.Version,
		PayloadOffset: uint64(env.OggOffset),
		MapVersion:    env.MapVersion,
		BufferSize:    env.BufferSize,
		Map:           env.Map,
	}
	off := mapEnd
	if profile.HasNonce() {
		copy(h.Nonce[:], buf[off:off+NonceSize])
		off += NonceSize
	}
	if profile.KeyBlockLength > 0 {
		h.KeyBlockOffset = uint32(off)
		h.KeyBlockLength = profile.KeyBlockLength
		h.KeyBlock = buf[off : off+uint64(profile.KeyBlockLength)]
	}
	return h, profile, nil
}

// Encode serialises the header for its version tag. PayloadOffset is set
// to the encoded length, so the payload must follow immediately.
func (h *Header) Encode() ([]byte, error) {
	profile, err := LookupTag(h.Version)
	if err != nil {
		return nil, err
	}
	if uint32(len(h.KeyBlock)) != profile.KeyBlockLength {
		return nil, errors.Errorf("mogg: key block is %d bytes, version 0x%02X needs %d",
			len(h.KeyBlock), h.Version, profile.KeyBlockLength)
	}
	size := h.HeaderSize(profile)
	if size > 0xFFFFFFFF {
		return nil, errors.Errorf("mogg: header of %d bytes does not fit", size)
	}

	env := envelope{
		Version:    h.Version,
		OggOffset:  uint32(size),
		MapVersion: h.MapVersion,
		BufferSize: h.BufferSize,
		Map:        h.Map,
	}
	out, err := restruct.Pack(binary.LittleEndian, &env)
	if err != nil {
		return nil, errors.Wrap(err, "mogg: encode header")
	}
	if profile.HasNonce() {
		out = append(out, h.Nonce[:]...)
	}
	if profile.KeyBlockLength > 0 {
		h.KeyBlockOffset = uint32(len(out))
		h.KeyBlockLength = profile.KeyBlockLength
		out = append(out, h.KeyBlock...)
	}
	h.PayloadOffset = size
	return out, nil
}

// WriteHeader encodes h and writes it to w.
func WriteHeader(w io.Writer, h *Header) error {
	b, err := h.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "mogg: write header")
}
