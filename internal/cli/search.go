package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search across meeting transcripts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		matches, err := api.Search(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}

		if len(matches) == 0 {
			fmt.Println("No matching transcripts found")
			return nil
		}

		for _, match := range matches {
			fmt.Printf("%s (%s)\n", match.JobID, match.Filename)
			fmt.Printf("  %s\n\n", match.Snippet)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
