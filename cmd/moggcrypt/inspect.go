package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
)

var InspectDump bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mogg>...",
	Short: "Print envelope headers and the key material they need",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		for _, path := range args {
			if err := inspectFile(path, store); err != nil {
				return err
			}
		}
		return nil
	},
}

func inspectFile(path string, store keystore.Store) error {
	src, err := mogg.OpenFile(path)
	if err != nil {
		return err
	}
	defer src.Close()

	h, p, err := mogg.ParseHeader(src)
	if err != nil {
		return errors.Wrap(err, path)
	}
	p = p.WithObfuscationTable(cfg.ObfuscationTable)

	fmt.Printf("%s\n", path)
	fmt.Printf("  version:     0x%02X (%s)\n", h.Version, p.Version)
	fmt.Printf("  payload:     %d bytes at 0x%X\n", src.Size()-int64(h.PayloadOffset), h.PayloadOffset)
	fmt.Printf("  map:         version 0x%X, buffer %d, %d entries\n", h.MapVersion, h.BufferSize, len(h.Map))
	if p.Encrypted() {
		fmt.Printf("  nonce:       %s\n", hex.EncodeToString(h.Nonce[:]))
	}
	if h.KeyBlockLength > 0 {
		fmt.Printf("  key block:   %d bytes at 0x%X\n", h.KeyBlockLength, h.KeyBlockOffset)
	}
	if tables := p.Tables(); len(tables) > 0 {
		status := make([]string, len(tables))
		for i, name := range tables {
			_, ok := store.Lookup(name)
			status[i] = fmt.Sprintf("%s (%s)", name, provisioned(ok))
		}
		fmt.Printf("  tables:      %s\n", strings.Join(status, ", "))
	}
	if _, err := mogg.DeriveKey(p, h.KeyBlock, store); err != nil {
		fmt.Printf("  key:         unavailable: %v\n", err)
	} else {
		fmt.Printf("  key:         ok\n")
	}

	if InspectDump {
		spew.Dump(h)
	}
	return nil
}

func provisioned(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&InspectDump, "dump", false, "dump the decoded header structure")
}
