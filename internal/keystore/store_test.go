package keystore

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLookup(t *testing.T) {
	m := Memory{
		PrimaryKey0B: {1, 2, 3},
		HvKeys:       {},
	}

	got, ok := m.Lookup(PrimaryKey0B)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	_, ok = m.Lookup(HvKeys)
	assert.False(t, ok, "empty table counts as not provisioned")

	_, ok = m.Lookup(ObfuscationRB4)
	assert.False(t, ok)

	assert.Equal(t, []string{PrimaryKey0B}, m.Names())
}

func TestEmptyStore(t *testing.T) {
	for _, name := range []string{PrimaryKey0B, HvKeys, ObfuscationDefault, ObfuscationFUSER} {
		_, ok := Empty.Lookup(name)
		assert.False(t, ok, name)
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
tables:
  primary-key-v0x0B: "00010203 04050607 08090a0b 0c0d0e0f"
  hv-key-table: ""
  obfuscation-table-dm: |
    a0a1a2a3
    a4a5
`)
	m, err := Parse(data)
	require.NoError(t, err)

	key, ok := m.Lookup(PrimaryKey0B)
	require.True(t, ok)
	assert.Len(t, key, 16)
	assert.Equal(t, byte(0x0f), key[15])

	_, ok = m.Lookup(HvKeys)
	assert.False(t, ok)

	dm, ok := m.Lookup(ObfuscationDM)
	require.True(t, ok)
	assert.Equal(t, []byte{0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5}, dm)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("tables:\n  primary-key-v0x0B: \"zz\"\n"))
	assert.ErrorContains(t, err, PrimaryKey0B)

	_, err = Parse([]byte("tables: [1, 2"))
	assert.Error(t, err)
}

func TestMarshalParse(t *testing.T) {
	m := Memory{PrimaryKey0B: {0xde, 0xad}, HvKeys: nil}
	data, err := Marshal(m)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	names := back.Names()
	sort.Strings(names)
	assert.Equal(t, []string{PrimaryKey0B}, names)
	assert.Contains(t, back, HvKeys)
}

func TestFileLazyLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	f := NewFile(path)

	// Nothing is read until the first lookup.
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  hv-key-table: \"ff\"\n"), 0600))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := f.Lookup(HvKeys)
			assert.True(t, ok)
			assert.Equal(t, []byte{0xff}, got)
		}()
	}
	wg.Wait()
	assert.NoError(t, f.Err())
}

func TestFileMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "absent.yaml"))
	_, ok := f.Lookup(PrimaryKey0B)
	assert.False(t, ok)
	assert.Error(t, f.Err())
}
