package mogg

import (
	"fmt"

	"moggcrypt/internal/crypto"
	"moggcrypt/internal/keystore"
)

// FormatVersion enumerates the known MOGG revisions.
type FormatVersion int

const (
	Unencrypted FormatVersion = iota
	FixedKey
	MaskedA
	MaskedB
	MaskedC
	MaskedD
	MaskedE
)

var versionNames = [...]string{
	Unencrypted: "unencrypted",
	FixedKey:    "fixed-key",
	MaskedA:     "masked-a",
	MaskedB:     "masked-b",
	MaskedC:     "masked-c",
	MaskedD:     "masked-d",
	MaskedE:     "masked-e",
}

func (v FormatVersion) String() string {
	if v >= 0 && int(v) < len(versionNames) {
		return versionNames[v]
	}
	return fmt.Sprintf("FormatVersion(%d)", int(v))
}

// Scheme is how a revision protects its payload.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeFixedKey
	SchemeMasked
)

// Profile is the fixed configuration of one revision.
type Profile struct {
	Version FormatVersion
	Tag     uint32
	Scheme  Scheme

	// KeyBlockLength is the size of the embedded key block, 0 if none.
	KeyBlockLength uint32
	// KeyTable is the single static key (SchemeFixedKey).
	KeyTable string
	// ObfuscationTable and HVSlot select the masking operands (SchemeMasked).
	ObfuscationTable string
	HVSlot           int
	Recipe           crypto.Recipe
}

// Encrypted reports whether the payload goes through the cipher.
func (p Profile) Encrypted() bool { return p.Scheme != SchemeNone }

// HasNonce reports whether the header carries a counter nonce.
func (p Profile) HasNonce() bool { return p.Scheme != SchemeNone }

// Tables lists the key-store tables this revision needs.
func (p Profile) Tables() []string {
	switch p.Scheme {
	case SchemeFixedKey:
		return []string{p.KeyTable}
	case SchemeMasked:
		return []string{keystore.HvKeys, p.ObfuscationTable}
	}
	return nil
}

const (
	hvKeySize       = 16
	hvTableSize     = 5 * hvKeySize
	obfuscationSize = 384
	fixedKeySize    = 16
	tagUnencrypted  = 0x0A
	tagFixedKey     = 0x0B
)

var profiles = []Profile{
	{Version: Unencrypted, Tag: tagUnencrypted, Scheme: SchemeNone},
	{Version: FixedKey, Tag: tagFixedKey, Scheme: SchemeFixedKey, KeyTable: keystore.PrimaryKey0B},
	{
		Version: MaskedA, Tag: 0x0C, Scheme: SchemeMasked, KeyBlockLength: crypto.MaskedKeySize,
		ObfuscationTable: keystore.ObfuscationDefault, HVSlot: 0,
		Recipe: crypto.Recipe{Start: 0x00, Stride: 7, Spread: 5, Offset: 3, Rotate: 1},
	},
	{
		Version: MaskedB, Tag: 0x0D, Scheme: SchemeMasked, KeyBlockLength: crypto.MaskedKeySize,
		ObfuscationTable: keystore.ObfuscationDM, HVSlot: 1,
		Recipe: crypto.Recipe{Start: 0x20, Stride: 11, Spread: 3, Offset: 9, Rotate: 3},
	},
	{
		Version: MaskedC, Tag: 0x0E, Scheme: SchemeMasked, KeyBlockLength: crypto.MaskedKeySize,
		ObfuscationTable: keystore.ObfuscationAudica, HVSlot: 2,
		Recipe: crypto.Recipe{Start: 0x40, Stride: 13, Spread: 7, Offset: 1, Rotate: 5},
	},
	{
		Version: MaskedD, Tag: 0x0F, Scheme: SchemeMasked, KeyBlockLength: crypto.MaskedKeySize,
		ObfuscationTable: keystore.ObfuscationRB4, HVSlot: 3,
		Recipe: crypto.Recipe{Start: 0x60, Stride: 17, Spread: 9, Offset: 6, Rotate: 2},
	},
	{
		Version: MaskedE, Tag: 0x10, Scheme: SchemeMasked, KeyBlockLength: crypto.MaskedKeySize,
		ObfuscationTable: keystore.ObfuscationFUSER, HVSlot: 4,
		Recipe: crypto.Recipe{Start: 0x80, Stride: 19, Spread: 11, Offset: 12, Rotate: 7},
	},
}

// Profiles returns the revision table in tag order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// LookupTag resolves a version tag.
func LookupTag(tag uint32) (Profile, error) {
	for _, p := range profiles {
		if p.Tag == tag {
			return p, nil
		}
	}
	return Profile{}, &VersionError{Tag: tag}
}

// Lookup resolves a FormatVersion.
func Lookup(v FormatVersion) (Profile, bool) {
	for _, p := range profiles {
		if p.Version == v {
			return p, true
		}
	}
	return Profile{}, false
}
