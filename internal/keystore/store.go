// Package keystore supplies the named static key tables the decryption
// engine consumes. Tables are read-only once loaded and safe for concurrent
// readers.
package keystore

// Table names used by the supported MOGG revisions.
const (
	PrimaryKey0B       = "primary-key-v0x0B"
	HvKeys             = "hv-key-table"
	ObfuscationDefault = "obfuscation-table-default"
	ObfuscationDM      = "obfuscation-table-dm"
	ObfuscationAudica  = "obfuscation-table-audica"
	ObfuscationRB4     = "obfuscation-table-rb4"
	ObfuscationFUSER   = "obfuscation-table-fuser"
)

// Store resolves a table by name. An absent or empty table reports false.
// Callers must not modify the returned slice.
type Store interface {
	Lookup(name string) ([]byte, bool)
}

// Memory is an in-memory Store. The zero value is an empty store.
type Memory map[string][]byte

// Lookup implements Store.
func (m Memory) Lookup(name string) ([]byte, bool) {
	t, ok := m[name]
	if !ok || len(t) == 0 {
		return nil, false
	}
	return t, true
}

// Names lists the provisioned tables in no particular order.
func (m Memory) Names() []string {
	names := make([]string, 0, len(m))
	for name, t := range m {
		if len(t) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Empty is a Store with no key material.
var Empty Store = Memory(nil)
