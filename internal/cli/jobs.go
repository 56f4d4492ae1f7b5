package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List all meeting jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := api.ListJobs(context.Background())
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}

		if len(jobs) == 0 {
			fmt.Println("No jobs found")
			return nil
		}

		fmt.Printf("%-38s %-13s %-20s %s\n", "ID", "STATE", "CREATED", "FILE")
		fmt.Println("--------------------------------------------------------------------------------")
		for _, job := range jobs {
			fmt.Printf("%-38s %-13s %-20s %s\n",
				job.JobID, job.State, job.CreatedAt.Format("2006-01-02 15:04:05"), job.Filename)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
