package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"moggcrypt/internal/keystore"
	"moggcrypt/internal/mogg"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show which MOGG versions the configured key tables can decrypt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if cfg.Keys != "" {
			fmt.Printf("Key file: %s\n", cfg.Keys)
		}
		for _, p := range mogg.Profiles() {
			p = p.WithObfuscationTable(cfg.ObfuscationTable)
			var missing []string
			for _, name := range p.Tables() {
				if _, ok := store.Lookup(name); !ok {
					missing = append(missing, name)
				}
			}
			status := "ready"
			if len(missing) > 0 {
				status = "missing " + strings.Join(missing, ", ")
			}
			fmt.Printf("  0x%02X %-12s %s\n", p.Tag, p.Version, status)
		}
		return nil
	},
}

var keysTemplateCmd = &cobra.Command{
	Use:   "template <keys.yaml>",
	Short: "Write an empty key file listing every table name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return errors.Errorf("%s already exists", args[0])
		}
		m := keystore.Memory{}
		for _, p := range mogg.Profiles() {
			for _, name := range p.Tables() {
				m[name] = nil
			}
		}
		data, err := keystore.Marshal(m)
		if err != nil {
			return err
		}
		return os.WriteFile(args[0], data, 0600)
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysTemplateCmd)
}
