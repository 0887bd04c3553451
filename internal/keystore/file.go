package keystore

import (
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk YAML layout:
//
//	tables:
//	  primary-key-v0x0B: "37b2e2b9 ..."
//
// Values are hex strings; whitespace is ignored. Empty values are allowed
// and mean "not provisioned".
type fileFormat struct {
	Tables map[string]string `yaml:"tables"`
}

// Parse decodes a YAML key file.
func Parse(data []byte) (Memory, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "keystore: parse")
	}

	m := make(Memory, len(f.Tables))
	for name, value := range f.Tables {
		clean := strings.Join(strings.Fields(value), "")
		b, err := hex.DecodeString(clean)
		if err != nil {
			return nil, errors.Wrapf(err, "keystore: table %q", name)
		}
		m[name] = b
	}
	return m, nil
}

// Load reads and decodes a YAML key file.
func Load(path string) (Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "keystore: read %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return m, nil
}

// Marshal encodes a store in the YAML key-file layout.
func Marshal(m Memory) ([]byte, error) {
	f := fileFormat{Tables: make(map[string]string, len(m))}
	for name, t := range m {
		f.Tables[name] = hex.EncodeToString(t)
	}
	return yaml.Marshal(&f)
}

// File is a Store backed by a YAML key file that is read on first lookup.
// A file that cannot be read behaves as an empty store; the load error is
// kept for Err.
type File struct {
	path string

	once   sync.Once
	tables Memory
	err    error
}

// NewFile returns a lazily loaded store for path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) load() {
	f.once.Do(func() {
		f.tables, f.err = Load(f.path)
		if f.err != nil {
			glog.Warningf("key store %s unavailable: %v", f.path, f.err)
			return
		}
		glog.V(1).Infof("key store %s: %d tables", f.path, len(f.tables.Names()))
	})
}

// Lookup implements Store.
func (f *File) Lookup(name string) ([]byte, bool) {
	f.load()
	return f.tables.Lookup(name)
}

// Err reports the load error, if any, forcing the load.
func (f *File) Err() error {
	f.load()
	return f.err
}
