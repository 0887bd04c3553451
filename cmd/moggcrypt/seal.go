package main

import (
	"crypto/rand"
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"moggcrypt/internal/decrypt"
	"moggcrypt/internal/mogg"
)

var SealVersion uint32

var sealCmd = &cobra.Command{
	Use:   "seal <input.ogg> <output.mogg>",
	Short: "Wrap an OGG stream in a MOGG envelope",
	Long: `Wrap an OGG stream in a MOGG envelope of the given version. Encrypted
versions get a random nonce, and masked versions a random key. The seek
table is left empty.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open input")
		}
		defer in.Close()

		h := &mogg.Header{
			Version:    SealVersion,
			MapVersion: mogg.DefaultMapVersion,
			BufferSize: mogg.DefaultBufferSize,
		}
		var sp decrypt.SealParams
		sp.ObfuscationTable = cfg.ObfuscationTable
		for _, b := range [][]byte{h.Nonce[:], sp.Key[:], sp.Tail[:]} {
			if _, err := rand.Read(b); err != nil {
				return errors.Wrap(err, "random")
			}
		}

		store, err := openStore()
		if err != nil {
			return err
		}

		var n int64
		err = writeFileAtomic(args[1], func(w io.Writer) error {
			n, err = decrypt.Seal(w, h, in, store, sp)
			return err
		})
		if err != nil {
			return err
		}
		glog.Infof("%s -> %s (version 0x%02X, %d payload bytes at 0x%X)",
			args[0], args[1], h.Version, n, h.PayloadOffset)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sealCmd)

	sealCmd.Flags().Uint32Var(&SealVersion, "version", 0x0A, "envelope version tag, e.g. 0x0A or 0x0B")
}
