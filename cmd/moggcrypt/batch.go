package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"moggcrypt/internal/batch"
)

var BatchManifest string

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-dir>...",
	Short: "Decrypt many MOGG files in parallel",
	Long: `Decrypt every given file, and every *.mogg file below every given
directory, using a pool of workers. A JSON manifest of the results can be
written with --manifest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := collectInputs(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Println("No MOGG files found.")
			return nil
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		fmt.Printf("Files: %d, Workers: %d\n", len(paths), cfg.Workers)
		start := time.Now()

		results := batch.Run(cmd.Context(), batch.Config{
			Store:            store,
			OutputPath:       cfg.OutputPath,
			Workers:          cfg.Workers,
			ChunkSize:        cfg.ChunkSize,
			Verify:           cfg.Verify,
			ObfuscationTable: cfg.ObfuscationTable,
		}, paths)

		var failures []batch.Result
		for _, r := range results {
			if !r.Success {
				failures = append(failures, r)
			}
		}
		fmt.Printf("Done in %.1fs, decrypted %d/%d\n", time.Since(start).Seconds(), len(paths)-len(failures), len(paths))

		if len(failures) > 0 {
			fmt.Printf("\nFailed (%d):\n", len(failures))
			limit := 20
			if len(failures) < limit {
				limit = len(failures)
			}
			for _, r := range failures[:limit] {
				fmt.Printf("  %s\n", r.Error)
			}
		}

		if BatchManifest != "" {
			if err := batch.WriteManifest(BatchManifest, results); err != nil {
				glog.Warningf("manifest write failed: %v", err)
			} else {
				fmt.Printf("Manifest: %s\n", BatchManifest)
			}
		}

		if len(failures) > 0 {
			return errors.Errorf("%d of %d files failed", len(failures), len(paths))
		}
		return nil
	},
}

// collectInputs expands directories into the *.mogg files below them.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && strings.EqualFold(filepath.Ext(path), ".mogg") {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", arg)
		}
	}
	return paths, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&flags.OutputDir, "output", "o", "", "output directory (default: next to each input)")
	batchCmd.Flags().IntVarP(&flags.Workers, "workers", "w", 0, "number of workers (default: NumCPU)")
	batchCmd.Flags().BoolVar(&flags.Verify, "verify", false, "check each result is an OGG Vorbis stream before writing")
	batchCmd.Flags().StringVar(&BatchManifest, "manifest", "", "write a JSON manifest of the results")
}
