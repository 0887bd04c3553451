// Package decrypt drives MOGG decryption end to end: header, key and
// payload transform. Every parse or key failure is reported by Open, before
// a single payload byte is produced.
package decrypt

import (
	"io"
	"iter"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"moggcrypt/internal/crypto"
	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
)

// DefaultChunkSize is the chunk length used when callers pass 0.
const DefaultChunkSize = 64 * 1024

type options struct {
	obfuscationTable string
}

// Option adjusts Open.
type Option func(*options)

// WithObfuscationTable makes masked revisions use the named table instead
// of the one their version tag selects.
func WithObfuscationTable(name string) Option {
	return func(o *options) { o.obfuscationTable = name }
}

// Decrypter exposes the decrypted payload of one envelope. It holds no
// mutable state and may be read from several goroutines.
type Decrypter struct {
	src     mogg.Source
	header  *mogg.Header
	profile mogg.Profile
	stream  *crypto.Stream
	size    int64
}

// Open parses the envelope in src and derives its key from store.
func Open(src mogg.Source, store keystore.Store, opts ...Option) (*Decrypter, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h, p, err := mogg.ParseHeader(src)
	if err != nil {
		return nil, err
	}
	p = p.WithObfuscationTable(o.obfuscationTable)

	d := &Decrypter{
		src:     src,
		header:  h,
		profile: p,
		size:    src.Size() - int64(h.PayloadOffset),
	}
	if p.Encrypted() {
		key, err := mogg.DeriveKey(p, h.KeyBlock, store)
		if err != nil {
			return nil, errors.Wrapf(err, "version 0x%02X", h.Version)
		}
		if d.stream, err = crypto.NewStream(key, h.Nonce); err != nil {
			return nil, err
		}
	}

	glog.V(1).Infof("decrypt: version 0x%02X (%s), payload %d bytes at 0x%X",
		h.Version, p.Version, d.size, h.PayloadOffset)
	return d, nil
}

// Header returns the parsed envelope header.
func (d *Decrypter) Header() *mogg.Header { return d.header }

// Profile returns the revision configuration in use.
func (d *Decrypter) Profile() mogg.Profile { return d.profile }

// Version returns the resolved revision.
func (d *Decrypter) Version() mogg.FormatVersion { return d.profile.Version }

// Size is the payload length in bytes.
func (d *Decrypter) Size() int64 { return d.size }

// ReadAt reads decrypted payload bytes; off is relative to the payload start.
func (d *Decrypter) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("decrypt: negative offset")
	}
	if off >= d.size {
		return 0, io.EOF
	}
	want := p
	if rem := d.size - off; int64(len(want)) > rem {
		want = want[:rem]
	}

	n, err := d.src.ReadAt(want, int64(d.header.PayloadOffset)+off)
	if n > 0 && d.stream != nil {
		d.stream.XORKeyStreamAt(p[:n], p[:n], off)
	}
	if n < len(p) && err == nil {
		err = io.EOF
	}
	return n, err
}

// DecryptRange returns the decrypted payload bytes [off, off+n).
func (d *Decrypter) DecryptRange(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off > d.size || n > d.size-off {
		return nil, errors.Wrapf(mogg.ErrTruncatedPayload,
			"range [%d, %d) outside %d byte payload", off, off+n, d.size)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	m, err := d.ReadAt(buf, off)
	if m < len(buf) {
		return nil, errors.Wrapf(err, "decrypt: read at %d", off)
	}
	return buf, nil
}

// Chunks yields the decrypted payload in order, size bytes at a time (the
// last chunk may be shorter). Every range over the sequence starts again
// at the beginning of the payload. A yielded slice is reused by the next
// step; copy it to keep it. Breaking out of the loop stops decryption.
func (d *Decrypter) Chunks(size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, size)
		for off := int64(0); off < d.size; {
			n := int64(size)
			if rem := d.size - off; rem < n {
				n = rem
			}
			m, err := d.ReadAt(buf[:n], off)
			if int64(m) < n {
				yield(nil, errors.Wrapf(err, "decrypt: read at %d", off))
				return
			}
			if !yield(buf[:m], nil) {
				return
			}
			off += int64(m)
		}
	}
}

// Reader returns a sequential reader over the decrypted payload.
func (d *Decrypter) Reader() *io.SectionReader {
	return io.NewSectionReader(d, 0, d.size)
}

// WriteTo writes the whole decrypted payload to w.
func (d *Decrypter) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for chunk, err := range d.Chunks(DefaultChunkSize) {
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, errors.Wrap(err, "decrypt: write")
		}
	}
	return total, nil
}
