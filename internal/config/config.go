package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// KeysFileName is the key file looked up when none is configured.
const KeysFileName = "keys.yaml"

// Config holds the tool settings.
type Config struct {
	// Paths
	Keys      string `toml:"keys"`
	OutputDir string `toml:"output_dir"`

	// Decryption settings
	Workers          int    `toml:"workers"`
	ChunkSize        int    `toml:"chunk_size"`
	Verify           bool   `toml:"verify"`
	ObfuscationTable string `toml:"obfuscation_table"`
	Extension        string `toml:"extension"`

	// KeysDetected is set when Keys was found by searching the default
	// locations rather than named by the file or a flag.
	KeysDetected bool `toml:"-"`
}

// Load reads a TOML config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	for _, key := range md.Undecoded() {
		glog.Warningf("config %s: unknown key %q", path, key.String())
	}
	return cfg, nil
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.Keys != "" {
		c.Keys = flags.Keys
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.ChunkSize > 0 {
		c.ChunkSize = flags.ChunkSize
	}
	if flags.Verify {
		c.Verify = true
	}
	if flags.ObfuscationTable != "" {
		c.ObfuscationTable = flags.ObfuscationTable
	}

	if c.Keys == "" {
		c.Keys = detectKeys()
		c.KeysDetected = c.Keys != ""
	}

	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 64 * 1024
	}
	if c.Extension == "" {
		c.Extension = ".ogg"
	}
}

// OutputPath maps an input file to its decrypted output path. Without an
// output directory the result sits next to the input.
func (c *Config) OutputPath(input string) string {
	base := filepath.Base(input)
	stem := base[:len(base)-len(filepath.Ext(base))]
	dir := c.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	out := filepath.Join(dir, stem+c.Extension)
	if out == filepath.Clean(input) {
		out = filepath.Join(dir, stem+".decrypted"+c.Extension)
	}
	return out
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Keys             string
	OutputDir        string
	Workers          int
	ChunkSize        int
	Verify           bool
	ObfuscationTable string
}

func detectKeys() string {
	var candidates []string

	// Next to the executable
	if exe, _ := os.Executable(); exe != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), KeysFileName))
	}
	// Current working directory
	if cwd, _ := os.Getwd(); cwd != "" {
		candidates = append(candidates, filepath.Join(cwd, KeysFileName))
	}
	// User config dir
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "moggcrypt", KeysFileName))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
