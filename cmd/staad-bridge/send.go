// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/staad-bridge/internal/dispatch"
)

var sendCmd = &cobra.Command{
	Use:   "send <file.std>",
	Short: "Push a STAAD.Pro document to a platform",
	Long: `Send reads a std document, optionally runs the remote analysis on it, and
publishes the model to the target platform. The speckle target creates an
object stream; the staad target writes a normalized std document to the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		analyze, _ := cmd.Flags().GetBool("analyze")
		out, _ := cmd.Flags().GetString("out")
		streamName, _ := cmd.Flags().GetString("stream-name")
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			viper.Set("export.server", server)
		}

		return runDispatch(dispatch.Request{
			Direction:  dispatch.Send,
			Source:     args[0],
			Platform:   to,
			Analyze:    analyze,
			OutputDir:  out,
			StreamName: streamName,
		})
	},
}

func init() {
	sendCmd.Flags().String("to", "speckle", "target platform: speckle or staad")
	sendCmd.Flags().Bool("analyze", false, "run the remote analysis before exporting")
	sendCmd.Flags().String("out", "", "output directory (default: ~/Documents/staad-bridge)")
	sendCmd.Flags().String("stream-name", "", "stream name (default: configured name, then model title)")
	sendCmd.Flags().String("server", "", "platform server URL override")

	rootCmd.AddCommand(sendCmd)
}
