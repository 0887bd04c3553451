package batch

import (
	"encoding/json"
	"os"
	"time"
)

// ManifestEntry represents one file in the run manifest.
type ManifestEntry struct {
	Input   string `json:"input"`
	Output  string `json:"output,omitempty"`
	Version string `json:"version,omitempty"`
	Bytes   int64  `json:"bytes"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Manifest is the JSON report written after a batch run.
type Manifest struct {
	Generated time.Time       `json:"generated"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Files     []ManifestEntry `json:"files"`
}

// NewManifest summarises results.
func NewManifest(results []Result) Manifest {
	m := Manifest{
		Generated: time.Now().UTC(),
		Files:     make([]ManifestEntry, len(results)),
	}
	for i, r := range results {
		m.Files[i] = ManifestEntry{
			Input:   r.Input,
			Output:  r.Output,
			Version: r.Version,
			Bytes:   r.Bytes,
			Success: r.Success,
			Error:   r.Error,
		}
		if r.Success {
			m.Succeeded++
		} else {
			m.Failed++
		}
	}
	return m
}

// WriteManifest writes the manifest for results to path.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(NewManifest(results), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
