// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the staad-bridge CLI: it moves
// structural models between STAAD.Pro std documents, the stream
// platform, and the remote analysis service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/staad-bridge/internal/dispatch"
	"github.com/pdiddy/staad-bridge/internal/ledger"
	"github.com/pdiddy/staad-bridge/internal/secrets"
	"github.com/pdiddy/staad-bridge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the staad-bridge CLI.
var rootCmd = &cobra.Command{
	Use:   "staad-bridge",
	Short: "Bridge between STAAD.Pro models, stream platforms, and remote analysis",
	Long: `staad-bridge reads and writes STAAD.Pro std documents, publishes models to
a stream platform and pulls them back, and submits models to a remote
analysis service.

Each direction is a subcommand: send pushes a local std document to a
platform, receive pulls a model back into a std document, analyze runs the
remote analysis on its own, and runs lists the dispatch history.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./staad-bridge.yaml or ~/.config/staad-bridge/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("staad-bridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "staad-bridge"))
		}
	}

	viper.SetEnvPrefix("STAAD_BRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the bridge configuration from viper keys and the
// secrets directory.
func loadConfig() types.BridgeConfig {
	var cfg types.BridgeConfig

	cfg.Analysis.BaseURL = viper.GetString("analysis.base_url")
	cfg.Analysis.Token = viper.GetString("analysis.token")
	cfg.Analysis.Timeout = viper.GetDuration("analysis.timeout")
	cfg.Analysis.PollBase = viper.GetDuration("analysis.poll_base")
	cfg.Analysis.PollMax = viper.GetDuration("analysis.poll_max")
	cfg.Analysis.PollTimeout = viper.GetDuration("analysis.poll_timeout")
	cfg.Analysis.MaxRetries = viper.GetInt("analysis.max_retries")
	cfg.Analysis.UserAgent = "staad-bridge/" + version

	cfg.Export.Server = viper.GetString("export.server")
	cfg.Export.Token = viper.GetString("export.token")
	cfg.Export.StreamName = viper.GetString("export.stream_name")
	cfg.Export.StreamDescription = viper.GetString("export.stream_description")
	cfg.Export.Timeout = viper.GetDuration("export.timeout")
	cfg.Export.UserAgent = "staad-bridge/" + version

	cfg.Dispatch.OutputDir = viper.GetString("dispatch.output_dir")
	cfg.Dispatch.LedgerDir = viper.GetString("dispatch.ledger_dir")

	secrets.Apply(loadedSecrets, &cfg)
	return cfg
}

// openLedger opens the run history store. Failures are reported but do
// not abort the run; dispatch works without a ledger.
func openLedger(cfg types.BridgeConfig) *ledger.Store {
	dir := cfg.Dispatch.LedgerDir
	if dir == "" {
		dir = cfg.Dispatch.OutputDir
	}
	if dir == "" {
		var err error
		if dir, err = dispatch.DefaultOutputDir(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
			return nil
		}
	}
	store, err := ledger.NewStore(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run history disabled: %v\n", err)
		return nil
	}
	return store
}

// signalContext returns a context cancelled by Ctrl-C, so a run in
// flight abandons its polling and cleans up the remote job.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// runDispatch executes a request with progress on stderr and prints
// what the run produced.
func runDispatch(req dispatch.Request) error {
	cfg := loadConfig()
	store := openLedger(cfg)
	if store != nil {
		defer store.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	d := dispatch.New(cfg, store)
	outcome, err := d.Run(ctx, req, dispatch.WriterObserver(os.Stderr))
	if err != nil {
		if outcome != nil && outcome.Result != nil {
			fmt.Fprintf(os.Stderr, "analysis result for job %s is kept with run %s\n",
				outcome.Result.JobID, outcome.RunID)
		}
		return err
	}

	if outcome.StreamID != "" {
		fmt.Printf("stream: %s\n", outcome.StreamID)
	}
	if outcome.OutputPath != "" {
		fmt.Printf("output: %s\n", outcome.OutputPath)
	}
	fmt.Printf("run: %s\n", outcome.RunID)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
