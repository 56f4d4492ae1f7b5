// Package cli provides the command-line interface for FluentNotes.
package cli

import (
	"os"

	"github.com/raphaelgruber/fluentnotes-go/internal/client"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	serverURL string
	api       *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fluentnotes",
	Short: "AI meeting note taker",
	Long: `FluentNotes turns meeting recordings into notes: upload an audio file,
the server transcribes it and extracts a summary, action items and
decisions, then poll or export the result.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"server URL (default $FLUENTNOTES_SERVER_URL or http://localhost:8475)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
