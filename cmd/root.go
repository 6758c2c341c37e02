// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/naka-gawa/codestats-box/internal/usecase"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codestats-box",
	Short: "A CLI tool to pin your Code::Stats XP to a GitHub gist.",
	Long: `codestats-box fetches a user's experience points from Code::Stats,
renders them as a fixed-width text card and writes the card into a GitHub gist.
Without a gist id and token it only prints the card.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		color.New(color.FgHiRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	// Add a persistent flag for verbose output, available to all commands.
	flags.BoolP("verbose", "v", false, "Enable verbose/debug logging")
	flags.String("config", "", "YAML config file (default $CODESTATS_BOX_CONFIG)")
	flags.String("env-file", "", "dotenv file to load (default ./.env when present)")

	// Config overrides. Only flags set on the command line take effect.
	flags.String("mode", "", "Card mode: level-xp, recent-xp or xp")
	flags.Int("rows", usecase.DefaultMaxRows, "Maximum number of language rows")
	flags.Int("width", usecase.DefaultWidth, "Display width of every line")
	flags.String("fill", string(usecase.DefaultFill), "Fill character between label and value")
	flags.String("gist-file", "", "Gist file to replace (default: the gist's first file, renamed to the title)")
	flags.Bool("force", false, "Write the gist even when its content is unchanged")
	flags.String("metrics-file", "", "Write run metrics in Prometheus text format to this file")

	flags.String("dump", "", "Print the fetched stats as json or yaml instead of the card")
}
