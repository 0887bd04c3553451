package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFileAtomic streams write into a temporary file next to path and
// renames it into place once write and close succeed. On failure nothing
// is left at path.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "output dir")
	}
	tmp, err := os.CreateTemp(dir, ".moggcrypt-*")
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "rename output")
}
