package decrypt

import (
	"io"

	"github.com/pkg/errors"

	"moggcrypt/internal/crypto"
	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
)

// SealParams carries the secrets Seal needs beyond the header.
type SealParams struct {
	// Key is the payload key for masked revisions. Fixed-key revisions
	// always use the store's static key.
	Key crypto.Key
	// Tail fills the part of a masked key block that does not carry the key.
	Tail [16]byte
	// ObfuscationTable overrides the revision's masking table.
	ObfuscationTable string
}

// Seal writes an envelope for h.Version around payload. For masked
// revisions the key block is generated from sp.Key; h.Nonce is used as is.
// It returns the number of payload bytes written.
func Seal(w io.Writer, h *mogg.Header, payload io.Reader, store keystore.Store, sp SealParams) (int64, error) {
	p, err := mogg.LookupTag(h.Version)
	if err != nil {
		return 0, err
	}
	p = p.WithObfuscationTable(sp.ObfuscationTable)

	var stream *crypto.Stream
	if p.Encrypted() {
		key := sp.Key
		if p.Scheme == mogg.SchemeMasked {
			if h.KeyBlock, err = mogg.MaskKey(p, key, sp.Tail, store); err != nil {
				return 0, errors.Wrapf(err, "version 0x%02X", h.Version)
			}
		} else {
			h.KeyBlock = nil
		}
		if key, err = mogg.DeriveKey(p, h.KeyBlock, store); err != nil {
			return 0, errors.Wrapf(err, "version 0x%02X", h.Version)
		}
		if stream, err = crypto.NewStream(key, h.Nonce); err != nil {
			return 0, err
		}
	} else {
		h.KeyBlock = nil
	}

	if err := mogg.WriteHeader(w, h); err != nil {
		return 0, err
	}

	buf := make([]byte, DefaultChunkSize)
	var off int64
	for {
		n, rerr := io.ReadFull(payload, buf)
		if n > 0 {
			if stream != nil {
				stream.XORKeyStreamAt(buf[:n], buf[:n], off)
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return off, errors.Wrap(err, "decrypt: write payload")
			}
			off += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			return off, nil
		}
		if rerr != nil {
			return off, errors.Wrap(rerr, "decrypt: read payload")
		}
	}
}
