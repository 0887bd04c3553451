package mogg

import (
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moggcrypt/internal/crypto"
	"moggcrypt/internal/keystore"
)

// fixtureStore fills every table with synthetic, self-consistent bytes.
func fixtureStore() keystore.Memory {
	obf := make([]byte, obfuscationSize)
	for i := range obf {
		obf[i] = byte(i*7 + 3)
	}
	hv := make([]byte, hvTableSize)
	for i := range hv {
		hv[i] = byte(0xA0 + i)
	}
	return keystore.Memory{
		keystore.PrimaryKey0B:       seq(16, 0),
		keystore.HvKeys:             hv,
		keystore.ObfuscationDefault: obf,
		keystore.ObfuscationDM:      obf,
		keystore.ObfuscationAudica:  obf,
		keystore.ObfuscationRB4:     obf,
		keystore.ObfuscationFUSER:   obf,
	}
}

func fixtureKeyBlock() []byte {
	b := make([]byte, crypto.MaskedKeySize)
	for i := range b {
		b[i] = byte(i*0x1D + 0x55)
	}
	return b
}

func mustProfile(t *testing.T, tag uint32) Profile {
	t.Helper()
	p, err := LookupTag(tag)
	require.NoError(t, err)
	return p
}

func TestDeriveKeyMaskedVectors(t *testing.T) {
	store := fixtureStore()
	want := map[uint32]string{
		0x0C: "86d91394f639b384e6698354e7184335",
		0x0D: "85d402195cfbfa99e4636629bcda0d3c",
		0x0E: "5efcf9977182f09efb11ca745267cdfb",
		0x0F: "0411d31386e0eb31c412d35114703ab1",
		0x10: "6340e233b532446547549e9f599690d1",
	}
	for tag, w := range want {
		key, err := DeriveKey(mustProfile(t, tag), fixtureKeyBlock(), store)
		require.NoError(t, err, "0x%02X", tag)
		assert.Equal(t, w, hex.EncodeToString(key[:]), "0x%02X", tag)
	}
}

func TestMaskedRevisionsUseOwnSlotAndTable(t *testing.T) {
	want := []struct {
		tag   uint32
		slot  int
		table string
	}{
		{0x0C, 0, keystore.ObfuscationDefault},
		{0x0D, 1, keystore.ObfuscationDM},
		{0x0E, 2, keystore.ObfuscationAudica},
		{0x0F, 3, keystore.ObfuscationRB4},
		{0x10, 4, keystore.ObfuscationFUSER},
	}
	var masked []Profile
	for _, p := range Profiles() {
		if p.Scheme == SchemeMasked {
			masked = append(masked, p)
		}
	}
	require.Len(t, masked, len(want))
	for i, w := range want {
		assert.Equal(t, w.tag, masked[i].Tag)
		assert.Equal(t, w.slot, masked[i].HVSlot, "0x%02X", w.tag)
		assert.Equal(t, w.table, masked[i].ObfuscationTable, "0x%02X", w.tag)
	}

	_, err := LookupTag(0x11)
	assert.True(t, errors.Is(err, ErrUnsupportedVersion))
}

func TestDeriveKeyFixed(t *testing.T) {
	key, err := DeriveKey(mustProfile(t, 0x0B), nil, fixtureStore())
	require.NoError(t, err)
	assert.Equal(t, seq(16, 0), key[:])
}

func TestDeriveKeyUnencrypted(t *testing.T) {
	for _, store := range []keystore.Store{nil, keystore.Empty, fixtureStore()} {
		key, err := DeriveKey(mustProfile(t, 0x0A), nil, store)
		require.NoError(t, err)
		assert.Equal(t, crypto.Key{}, key)
	}
}

func TestDeriveKeyEmptyStore(t *testing.T) {
	for _, p := range Profiles() {
		if !p.Encrypted() {
			continue
		}
		for _, store := range []keystore.Store{nil, keystore.Empty, keystore.Memory{}} {
			_, err := DeriveKey(p, fixtureKeyBlock(), store)
			require.Error(t, err, p.Version.String())
			assert.True(t, errors.Is(err, ErrMissingKeyMaterial), "%s: %v", p.Version, err)
			assert.False(t, errors.Is(err, ErrUnsupportedVersion))
		}
	}
}

func TestDeriveKeyPartialStore(t *testing.T) {
	store := fixtureStore()
	store[keystore.HvKeys] = store[keystore.HvKeys][:32]
	delete(store, keystore.ObfuscationFUSER)

	// Slots 0 and 1 are covered.
	_, err := DeriveKey(mustProfile(t, 0x0C), fixtureKeyBlock(), store)
	assert.NoError(t, err)
	_, err = DeriveKey(mustProfile(t, 0x0D), fixtureKeyBlock(), store)
	assert.NoError(t, err)

	_, err = DeriveKey(mustProfile(t, 0x0E), fixtureKeyBlock(), store)
	var missing *MissingTableError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, keystore.HvKeys, missing.Table)

	store[keystore.HvKeys] = fixtureStore()[keystore.HvKeys]
	_, err = DeriveKey(mustProfile(t, 0x10), fixtureKeyBlock(), store)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, keystore.ObfuscationFUSER, missing.Table)
}

func TestDeriveKeyWrongTableSize(t *testing.T) {
	store := fixtureStore()
	store[keystore.PrimaryKey0B] = seq(15, 0)
	store[keystore.ObfuscationDefault] = seq(80, 0)

	_, err := DeriveKey(mustProfile(t, 0x0B), nil, store)
	assert.True(t, errors.Is(err, ErrMissingKeyMaterial))
	_, err = DeriveKey(mustProfile(t, 0x0C), fixtureKeyBlock(), store)
	assert.True(t, errors.Is(err, ErrMissingKeyMaterial))
	assert.Contains(t, err.Error(), "has 80 bytes")
}

func TestDeriveKeyShortKeyBlock(t *testing.T) {
	_, err := DeriveKey(mustProfile(t, 0x0C), seq(31, 0), fixtureStore())
	assert.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestDeriveKeyTableOverride(t *testing.T) {
	store := fixtureStore()
	alt := make([]byte, obfuscationSize)
	store["obfuscation-table-alt"] = alt

	p := mustProfile(t, 0x0C)
	base, err := DeriveKey(p, fixtureKeyBlock(), store)
	require.NoError(t, err)
	over, err := DeriveKey(p.WithObfuscationTable("obfuscation-table-alt"), fixtureKeyBlock(), store)
	require.NoError(t, err)
	assert.NotEqual(t, base, over)

	fixed := mustProfile(t, 0x0B).WithObfuscationTable("obfuscation-table-alt")
	assert.Equal(t, mustProfile(t, 0x0B), fixed)
}

func TestMaskKeyRoundTrip(t *testing.T) {
	store := fixtureStore()
	key := crypto.Key{0x10, 0x32, 0x54, 0x76, 0x98, 0xBA, 0xDC, 0xFE, 1, 3, 5, 7, 9, 11, 13, 15}
	for _, p := range Profiles() {
		if p.Scheme != SchemeMasked {
			continue
		}
		block, err := MaskKey(p, key, [16]byte{9, 9, 9}, store)
		require.NoError(t, err)
		require.Len(t, block, int(p.KeyBlockLength))

		got, err := DeriveKey(p, block, store)
		require.NoError(t, err)
		assert.Equal(t, key, got, p.Version.String())
	}
}

func TestDeriveKeyDoesNotMutateStore(t *testing.T) {
	store := fixtureStore()
	for _, p := range Profiles() {
		_, err := DeriveKey(p, fixtureKeyBlock(), store)
		require.NoError(t, err)
	}
	assert.Equal(t, fixtureStore(), store)
}
