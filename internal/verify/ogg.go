// Package verify checks that decrypted payloads are OGG Vorbis streams.
// Derived keys carry no checksum, so this is the only signal that a key
// was wrong.
package verify

import (
	"bufio"
	"bytes"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/pkg/errors"
)

// ErrNotOgg reports a payload without the OGG capture pattern.
var ErrNotOgg = errors.New("verify: payload is not an OGG stream")

var capturePattern = []byte("OggS")

// Info describes the first logical stream of a payload.
type Info struct {
	Channels       int
	SampleRate     int
	NominalBitrate int
}

// Ogg reads the first page of r and decodes the Vorbis identification header.
func Ogg(r io.Reader) (Info, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(len(capturePattern))
	if err != nil || !bytes.Equal(magic, capturePattern) {
		return Info{}, ErrNotOgg
	}

	f, err := oggvorbis.GetFormat(br)
	if err != nil {
		return Info{}, errors.Wrap(err, "verify: vorbis header")
	}
	return Info{
		Channels:       f.Channels,
		SampleRate:     f.SampleRate,
		NominalBitrate: f.Bitrate.Nominal,
	}, nil
}

// HasCapturePattern reports whether b starts like an OGG page.
func HasCapturePattern(b []byte) bool {
	return bytes.HasPrefix(b, capturePattern)
}
