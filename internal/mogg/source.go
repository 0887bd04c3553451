package mogg

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Source is random-access input that knows its length.
// *bytes.Reader and *io.SectionReader satisfy it.
type Source interface {
	io.ReaderAt
	Size() int64
}

// File is an open file used as a Source.
type File struct {
	*os.File
	size int64
}

// OpenFile opens path for random access.
func OpenFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mogg: open")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mogg: stat %s", path)
	}
	return &File{File: f, size: st.Size()}, nil
}

// Size implements Source.
func (f *File) Size() int64 { return f.size }

// readFull reads exactly len(buf) bytes at off. An io.EOF that arrives
// together with a full buffer is not an error.
func readFull(src io.ReaderAt, buf []byte, off int64) error {
	n, err := src.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
