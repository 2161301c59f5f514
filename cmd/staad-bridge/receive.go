// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/staad-bridge/internal/dispatch"
)

var receiveCmd = &cobra.Command{
	Use:   "receive <locator>",
	Short: "Pull a model from a platform into a STAAD.Pro document",
	Long: `Receive fetches a model from the source platform and writes it as a std
document in the output directory. For the speckle platform the locator is a
stream id; for the staad platform it is a file path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		out, _ := cmd.Flags().GetString("out")
		if server, _ := cmd.Flags().GetString("server"); server != "" {
			viper.Set("export.server", server)
		}

		return runDispatch(dispatch.Request{
			Direction: dispatch.Receive,
			Source:    args[0],
			Platform:  from,
			OutputDir: out,
		})
	},
}

func init() {
	receiveCmd.Flags().String("from", "speckle", "source platform: speckle or staad")
	receiveCmd.Flags().String("out", "", "output directory (default: ~/Documents/staad-bridge)")
	receiveCmd.Flags().String("server", "", "platform server URL override")

	rootCmd.AddCommand(receiveCmd)
}
