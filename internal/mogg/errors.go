package mogg

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedHeader reports a structurally broken envelope.
	ErrMalformedHeader = errors.New("mogg: malformed header")
	// ErrUnsupportedVersion reports a well-formed envelope with an unknown version tag.
	ErrUnsupportedVersion = errors.New("mogg: unsupported version")
	// ErrMissingKeyMaterial reports that the key store lacks a table the version needs.
	ErrMissingKeyMaterial = errors.New("mogg: missing key material")
	// ErrTruncatedPayload reports a payload region that runs past the end of the source.
	ErrTruncatedPayload = errors.New("mogg: truncated payload")
)

// VersionError carries the unrecognised version tag.
type VersionError struct {
	Tag uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("mogg: unsupported version 0x%02X", e.Tag)
}

func (e *VersionError) Unwrap() error { return ErrUnsupportedVersion }

// MissingTableError names the key table that could not be used.
type MissingTableError struct {
	Table  string
	Reason string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("mogg: missing key material: %s %s", e.Table, e.Reason)
}

func (e *MissingTableError) Unwrap() error { return ErrMissingKeyMaterial }
