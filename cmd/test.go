package cmd

import (
	"github.com/naka-gawa/codestats-box/internal/config"
	"github.com/spf13/cobra"
)

// testArgKeys are the config keys of the positional arguments, in order.
var testArgKeys = []string{"username", "mode", "gist_id", "github_token"}

var testCmd = &cobra.Command{
	Use:   "test <username> [mode] [gist-id] [github-token]",
	Short: "Renders the card for a user, updating the gist only when given one",
	Long: `Renders the stats card for the given Code::Stats user and prints it.
The gist is written only when a gist id and a GitHub token are known, from the
arguments or from the usual config sources. Arguments win over everything else.`,
	Args: cobra.RangeArgs(1, len(testArgKeys)),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := make([]config.LoadOption, 0, len(args))
		for i, arg := range args {
			opts = append(opts, config.WithOverride(testArgKeys[i], arg))
		}
		return runUpdate(cmd, false, opts...)
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
