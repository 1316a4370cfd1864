package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/seekrai/internal/pipeline"
)

var (
	analyzePosition string
	analyzeLocation string
	analyzeCount    int
	analyzeHoursOld int
	analyzeOutput   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <resume-file>",
	Short: "Run the full analysis pipeline against a resume file",
	Long: `Redact the resume, extract keywords, generate search terms, scrape job
boards, and score every posting. Prints the ranked postings as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePosition, "position", "", "Desired position to bias the search toward")
	analyzeCmd.Flags().StringVar(&analyzeLocation, "location", "", "Target location")
	analyzeCmd.Flags().IntVar(&analyzeCount, "count", 0, "Number of postings to return (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeHoursOld, "hours-old", 0, "Only postings newer than this many hours")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the result JSON to a file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	resume, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	count := analyzeCount
	if count == 0 {
		count = a.cfg.ResultsWanted
	}

	result, err := a.pipeline.Run(ctx, uuid.NewString(), pipeline.Request{
		Resume:          string(resume),
		DesiredPosition: analyzePosition,
		TargetLocation:  analyzeLocation,
		ResultsWanted:   count,
		HoursOld:        analyzeHoursOld,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if analyzeOutput != "" {
		if err := os.WriteFile(analyzeOutput, out, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		cmd.Printf("Result written to %s\n", analyzeOutput)
		return nil
	}

	cmd.Println(string(out))
	if result.Advisory != "" {
		fmt.Fprintf(os.Stderr, "Note: %s\n", result.Advisory)
	}
	return nil
}
