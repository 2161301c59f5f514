// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/staad-bridge/internal/analysis"
	"github.com/pdiddy/staad-bridge/internal/staad"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.std>",
	Short: "Run the remote analysis on a STAAD.Pro document",
	Long: `Analyze reads a std document, submits it to the remote analysis service,
waits for the job to finish, and writes the displacements and member forces
as a YAML file next to the source document.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(source, ".std") + ".results.yaml"
		}

		f, err := os.Open(source)
		if err != nil {
			return err
		}
		r := staad.NewReader()
		m, err := r.Read(f)
		f.Close()
		if err != nil {
			return err
		}
		for _, w := range r.Warnings() {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}

		cfg := loadConfig()
		client := analysis.NewClient(cfg.Analysis)
		client.OnPoll = func(jobID string, attempt int, wait time.Duration) {
			fmt.Fprintf(os.Stderr, "job %s still running, next poll in %v (poll %d)\n", jobID, wait, attempt)
		}

		ctx, cancel := signalContext()
		defer cancel()

		result, err := client.Analyze(ctx, m)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("results: %s\n", out)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("out", "", "result file (default: <file>.results.yaml)")

	rootCmd.AddCommand(analyzeCmd)
}
