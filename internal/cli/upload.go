package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/fluentnotes-go/internal/client"
	"github.com/spf13/cobra"
)

var (
	uploadWait         bool
	uploadPollInterval time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload <audio-file>",
	Short: "Upload a meeting recording for processing",
	Long: `Upload an audio file (.wav, .mp3, .m4a) and start transcription and
summarization in the background.

Examples:
  fluentnotes upload meeting.wav          # Upload and print the job ID
  fluentnotes upload meeting.wav --wait   # Upload and poll until done`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "poll until the job reaches a terminal state")
	uploadCmd.Flags().DurationVar(&uploadPollInterval, "poll-interval", 2*time.Second, "poll interval with --wait")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	result, err := api.Upload(ctx, args[0])
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	fmt.Printf("Job: %s\n", result.JobID)
	fmt.Printf("  File: %s\n", result.Filename)
	fmt.Printf("  %s\n", result.Message)

	if !uploadWait {
		return nil
	}

	job, err := pollUntilTerminal(ctx, result.JobID, uploadPollInterval)
	if err != nil {
		return err
	}
	printJob(job)
	return nil
}

// pollUntilTerminal re-fetches job status until it is completed or failed.
func pollUntilTerminal(ctx context.Context, id string, interval time.Duration) (*client.JobStatus, error) {
	lastState := ""
	for {
		job, err := api.GetJob(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get job: %w", err)
		}
		if job.State != lastState {
			fmt.Printf("  state: %s\n", job.State)
			lastState = job.State
		}
		if job.State == "completed" || job.State == "failed" {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
