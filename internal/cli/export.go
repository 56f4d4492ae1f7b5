package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFormat     string
	exportOutput     string
	exportTranscript bool
)

var exportCmd = &cobra.Command{
	Use:   "export <job-id>",
	Short: "Download the rendered report for a completed job",
	Long: `Download the meeting report. The job must have completed.

Examples:
  fluentnotes export abc123                       # report.pdf
  fluentnotes export abc123 -f docx -o notes.docx
  fluentnotes export abc123 -f txt
  fluentnotes export abc123 -f json --transcript=false`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "export format: pdf, docx, json or txt")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default meeting_<id>_report.<format>)")
	exportCmd.Flags().BoolVar(&exportTranscript, "transcript", true, "include the full transcript")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	id := args[0]

	data, err := api.Export(context.Background(), id, exportFormat, exportTranscript)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	output := exportOutput
	if output == "" {
		output = fmt.Sprintf("meeting_%s_report.%s", id, exportFormat)
	}

	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("Wrote %d bytes to %s\n", len(data), output)
	return nil
}
