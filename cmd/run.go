package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Updates the stats gist from config and environment",
	Long: `Reads the Code::Stats user, mode, gist id and GitHub token from the config file,
.env and the environment (CODE_STATS_USERNAME, STATS_TYPE, GIST_ID, GH_TOKEN),
renders the stats card and replaces the gist file with it. Meant for schedulers:
a missing gist id or token fails the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
