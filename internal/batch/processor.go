package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"moggcrypt/internal/decrypt"
	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
	"moggcrypt/internal/verify"
)

// Config holds all shared resources for a batch run.
type Config struct {
	Store            keystore.Store
	OutputPath       func(input string) string
	Workers          int
	ChunkSize        int
	Verify           bool
	ObfuscationTable string
}

// Result holds the outcome of processing one file.
type Result struct {
	Input   string
	Output  string
	Version string
	Bytes   int64
	Success bool
	Error   string
	Err     error
}

// Run decrypts every path using a worker pool. Each file gets its own
// Decrypter; the store is shared read-only. Results keep the input order.
func Run(ctx context.Context, cfg Config, paths []string) []Result {
	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					glog.Infof("[%d/%d] %.1f files/sec", p, total, rate)
				}
			}
		}
	}()

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		if gctx.Err() != nil {
			results[i] = failed(path, "", gctx.Err())
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failed(path, "", err)
			} else {
				results[i] = processFile(cfg, path)
			}
			processed.Add(1)
			return nil
		})
	}

	g.Wait()
	close(done)

	return results
}

func failed(input, output string, err error) Result {
	return Result{Input: input, Output: output, Error: err.Error(), Err: err}
}

func processFile(cfg Config, input string) Result {
	src, err := mogg.OpenFile(input)
	if err != nil {
		return failed(input, "", err)
	}
	defer src.Close()

	var opts []decrypt.Option
	if cfg.ObfuscationTable != "" {
		opts = append(opts, decrypt.WithObfuscationTable(cfg.ObfuscationTable))
	}
	d, err := decrypt.Open(src, cfg.Store, opts...)
	if err != nil {
		return failed(input, "", errors.Wrap(err, input))
	}
	version := d.Version().String()

	if cfg.Verify {
		info, err := verify.Ogg(d.Reader())
		if err != nil {
			r := failed(input, "", errors.Wrap(err, input))
			r.Version = version
			return r
		}
		glog.V(1).Infof("%s: %d ch, %d Hz", input, info.Channels, info.SampleRate)
	}

	output := cfg.OutputPath(input)
	n, err := writeOutput(d, output, cfg.ChunkSize)
	if err != nil {
		r := failed(input, output, err)
		r.Version = version
		return r
	}

	return Result{
		Input:   input,
		Output:  output,
		Version: version,
		Bytes:   n,
		Success: true,
	}
}

// writeOutput streams the payload into a temporary file and renames it
// into place so a failed run never leaves a partial output behind.
func writeOutput(d *decrypt.Decrypter, output string, chunkSize int) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return 0, errors.Wrap(err, "batch: output dir")
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), ".moggcrypt-*")
	if err != nil {
		return 0, errors.Wrap(err, "batch: create output")
	}
	defer os.Remove(tmp.Name())

	var total int64
	for chunk, err := range d.Chunks(chunkSize) {
		if err != nil {
			tmp.Close()
			return total, err
		}
		n, err := tmp.Write(chunk)
		total += int64(n)
		if err != nil {
			tmp.Close()
			return total, errors.Wrap(err, "batch: write output")
		}
	}
	if err := tmp.Close(); err != nil {
		return total, errors.Wrap(err, "batch: close output")
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return total, errors.Wrap(err, "batch: rename output")
	}
	return total, nil
}
