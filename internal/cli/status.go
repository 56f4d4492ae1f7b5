package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/fluentnotes-go/internal/client"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the current state and notes of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := api.GetJob(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}
		printJob(job)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printJob(job *client.JobStatus) {
	fmt.Printf("Job: %s\n", job.JobID)
	fmt.Printf("  File: %s\n", job.Filename)
	fmt.Printf("  State: %s\n", job.State)
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.DetectedLanguage != nil {
		fmt.Printf("  Language: %s\n", *job.DetectedLanguage)
	}
	if job.ErrorMessage != nil {
		fmt.Printf("  Error: %s\n", *job.ErrorMessage)
	}
	if job.Summary != nil {
		fmt.Printf("\nSummary:\n%s\n", *job.Summary)
	}
	if len(job.ActionItems) > 0 {
		fmt.Println("\nAction Items:")
		for _, item := range job.ActionItems {
			fmt.Printf("  - %s\n", item)
		}
	}
	if len(job.Decisions) > 0 {
		fmt.Println("\nDecisions:")
		for _, item := range job.Decisions {
			fmt.Printf("  - %s\n", item)
		}
	}
}
