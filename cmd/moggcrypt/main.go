package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"moggcrypt/internal/config"
	"moggcrypt/internal/decrypt"
	"moggcrypt/internal/keystore"
)

var (
	ConfigFile string

	cfg   config.Config
	flags config.Flags
)

var rootCmd = &cobra.Command{
	Use:           "moggcrypt",
	Short:         "Decrypt MOGG audio containers to plain OGG",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// glog expects flag.Parse; cobra has already filled the values in.
		flag.CommandLine.Parse(nil)

		if ConfigFile != "" {
			c, err := config.Load(ConfigFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		cfg.Resolve(flags)
		return nil
	},
}

func init() {
	flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "config file (TOML)")
	rootCmd.PersistentFlags().StringVarP(&flags.Keys, "keys", "k", "", "key table file (YAML), default: auto-detect keys.yaml")
	rootCmd.PersistentFlags().IntVar(&flags.ChunkSize, "chunk-size", 0, "decryption chunk size in bytes (default: 65536)")
	rootCmd.PersistentFlags().StringVar(&flags.ObfuscationTable, "table", "", "use this obfuscation table for masked versions")
}

func main() {
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		glog.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore returns the configured key store. Without a key file only
// unencrypted envelopes can be opened. A key file that was named explicitly
// must load; an auto-detected one that does not is skipped with a warning.
func openStore() (keystore.Store, error) {
	if cfg.Keys == "" {
		glog.Warning("no key file configured; only unencrypted files can be decrypted")
		return keystore.Empty, nil
	}
	store := keystore.NewFile(cfg.Keys)
	if err := store.Err(); err != nil {
		if cfg.KeysDetected {
			return keystore.Empty, nil
		}
		return nil, err
	}
	return store, nil
}

func openOptions() []decrypt.Option {
	if cfg.ObfuscationTable == "" {
		return nil
	}
	return []decrypt.Option{decrypt.WithObfuscationTable(cfg.ObfuscationTable)}
}
