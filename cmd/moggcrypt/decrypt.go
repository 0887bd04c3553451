package main

import (
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"moggcrypt/internal/batch"
	"moggcrypt/internal/decrypt"
	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
)

var (
	DecryptOffset int64
	DecryptLength int64
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <input.mogg> [output.ogg]",
	Short: "Decrypt one MOGG file",
	Long: `Decrypt one MOGG file. Without an output path the result is written next
to the input (or into --output). Use "-" to write to stdout.
--offset/--length decrypt only a byte range of the payload.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		output := cfg.OutputPath(input)
		if len(args) == 2 {
			output = args[1]
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		if output == "-" || cmd.Flags().Changed("offset") || cmd.Flags().Changed("length") {
			return decryptRange(store, input, output, DecryptOffset, DecryptLength)
		}

		results := batch.Run(cmd.Context(), batch.Config{
			Store:            store,
			OutputPath:       func(string) string { return output },
			Workers:          1,
			ChunkSize:        cfg.ChunkSize,
			Verify:           cfg.Verify,
			ObfuscationTable: cfg.ObfuscationTable,
		}, []string{input})

		r := results[0]
		if !r.Success {
			return r.Err
		}
		glog.Infof("%s -> %s (%s, %d bytes)", r.Input, r.Output, r.Version, r.Bytes)
		return nil
	},
}

// decryptRange writes payload bytes [offset, offset+length) of input to
// output, or to stdout for "-". A negative length runs to the end.
func decryptRange(store keystore.Store, input, output string, offset, length int64) error {
	src, err := mogg.OpenFile(input)
	if err != nil {
		return err
	}
	defer src.Close()

	d, err := decrypt.Open(src, store, openOptions()...)
	if err != nil {
		return errors.Wrap(err, input)
	}

	if length < 0 {
		length = d.Size() - offset
	}
	if offset < 0 || length < 0 || offset > d.Size() || length > d.Size()-offset {
		return errors.Wrapf(mogg.ErrTruncatedPayload, "range [%d, %d) outside %d byte payload",
			offset, offset+length, d.Size())
	}

	var n int64
	copyRange := func(w io.Writer) error {
		n, err = io.Copy(w, io.NewSectionReader(d, offset, length))
		return errors.Wrap(err, "write output")
	}
	if output == "-" {
		err = copyRange(os.Stdout)
	} else {
		err = writeFileAtomic(output, copyRange)
	}
	if err != nil {
		return err
	}
	glog.V(1).Infof("%s: %d bytes from payload offset %d", input, n, offset)
	return nil
}

func init() {
	rootCmd.AddCommand(decryptCmd)

	decryptCmd.Flags().StringVarP(&flags.OutputDir, "output", "o", "", "output directory")
	decryptCmd.Flags().BoolVar(&flags.Verify, "verify", false, "check the result is an OGG Vorbis stream before writing")
	decryptCmd.Flags().Int64Var(&DecryptOffset, "offset", 0, "payload offset to start at")
	decryptCmd.Flags().Int64Var(&DecryptLength, "length", -1, "number of payload bytes (default: to the end)")
}
