package mogg

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"moggcrypt/internal/crypto"
	"moggcrypt/internal/keystore"
)

// WithObfuscationTable returns p reading its masking table from name
// instead of the revision default. Non-masked profiles are returned as is.
func (p Profile) WithObfuscationTable(name string) Profile {
	if p.Scheme == SchemeMasked && name != "" {
		p.ObfuscationTable = name
	}
	return p
}

// DeriveKey produces the cipher key for revision p from the embedded key
// block. Unencrypted revisions yield the zero key and no error. Tables are
// borrowed from store and never modified.
func DeriveKey(p Profile, keyBlock []byte, store keystore.Store) (crypto.Key, error) {
	switch p.Scheme {
	case SchemeNone:
		return crypto.Key{}, nil

	case SchemeFixedKey:
		t, err := lookupTable(store, p.KeyTable, fixedKeySize)
		if err != nil {
			return crypto.Key{}, err
		}
		var key crypto.Key
		copy(key[:], t)
		return key, nil

	case SchemeMasked:
		if len(keyBlock) != int(p.KeyBlockLength) {
			return crypto.Key{}, errors.Wrapf(ErrMalformedHeader,
				"key block is %d bytes, want %d", len(keyBlock), p.KeyBlockLength)
		}
		hv, err := hvKey(store, p.HVSlot)
		if err != nil {
			return crypto.Key{}, err
		}
		table, err := lookupTable(store, p.ObfuscationTable, obfuscationSize)
		if err != nil {
			return crypto.Key{}, err
		}
		glog.V(2).Infof("mogg: unmasking 0x%02X key with %s, hv slot %d", p.Tag, p.ObfuscationTable, p.HVSlot)
		return crypto.RevealKey(keyBlock, table, hv, p.Recipe), nil
	}
	return crypto.Key{}, errors.Errorf("mogg: unknown scheme %d", p.Scheme)
}

// MaskKey builds the key block that DeriveKey turns back into key. tail
// seeds the half of the block that does not carry the key directly.
func MaskKey(p Profile, key crypto.Key, tail [16]byte, store keystore.Store) ([]byte, error) {
	if p.Scheme != SchemeMasked {
		return nil, nil
	}
	hv, err := hvKey(store, p.HVSlot)
	if err != nil {
		return nil, err
	}
	table, err := lookupTable(store, p.ObfuscationTable, obfuscationSize)
	if err != nil {
		return nil, err
	}
	block := crypto.HideKey(key, tail, table, hv, p.Recipe)
	return block[:], nil
}

func lookupTable(store keystore.Store, name string, size int) ([]byte, error) {
	if store == nil {
		return nil, &MissingTableError{Table: name, Reason: "not provisioned"}
	}
	t, ok := store.Lookup(name)
	if !ok {
		return nil, &MissingTableError{Table: name, Reason: "not provisioned"}
	}
	if len(t) != size {
		return nil, &MissingTableError{Table: name, Reason: fmt.Sprintf("has %d bytes, want %d", len(t), size)}
	}
	return t, nil
}

// hvKey returns the 16-byte slot of the HV table. A partially provisioned
// table serves the slots it covers.
func hvKey(store keystore.Store, slot int) ([]byte, error) {
	if store == nil {
		return nil, &MissingTableError{Table: keystore.HvKeys, Reason: "not provisioned"}
	}
	t, ok := store.Lookup(keystore.HvKeys)
	if !ok {
		return nil, &MissingTableError{Table: keystore.HvKeys, Reason: "not provisioned"}
	}
	if len(t) > hvTableSize || len(t)%hvKeySize != 0 {
		return nil, &MissingTableError{Table: keystore.HvKeys,
			Reason: fmt.Sprintf("has %d bytes, want a multiple of %d up to %d", len(t), hvKeySize, hvTableSize)}
	}
	end := (slot + 1) * hvKeySize
	if end > len(t) {
		return nil, &MissingTableError{Table: keystore.HvKeys, Reason: fmt.Sprintf("slot %d not provisioned", slot)}
	}
	return t[end-hvKeySize : end], nil
}
