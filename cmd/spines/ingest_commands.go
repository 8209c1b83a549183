package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/inbox"
	"spines/internal/ingest"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var contributor string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents into the catalog",
		Long: `Copy each file into the temp directory, run metadata extraction and route it:
high-confidence documents are catalogued, uncertain ones go to the review
queue and unreadable ones to the OCR queue. Source files are not modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(contributor) == "" {
				return errors.New("--contributor is required")
			}
			return ctx.withStack(cmd, true, func(s *stack) error {
				outcomes := make([]ingest.Outcome, 0, len(args))
				var failed int
				for _, src := range args {
					staged, err := s.pipeline.Stage(src)
					if err != nil {
						outcomes = append(outcomes, ingest.Outcome{Path: src, Status: ingest.StatusFailed, Error: err.Error()})
						failed++
						continue
					}
					out, err := s.pipeline.Process(cmd.Context(), staged, contributor)
					out.Path = src
					if err != nil {
						failed++
					}
					outcomes = append(outcomes, out)
				}
				if asJSON {
					if err := writeJSON(cmd, outcomes); err != nil {
						return err
					}
				} else {
					printOutcomes(cmd, outcomes)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d documents failed", failed, len(args))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contributor, "contributor", "", "Name recorded as the contributor")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print outcomes as JSON")
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var contributor string
	var watch bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Ingest every supported document under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(contributor) == "" {
				return errors.New("--contributor is required")
			}
			dir := args[0]
			return ctx.withStack(cmd, true, func(s *stack) error {
				summary, err := s.pipeline.ScanDirectory(cmd.Context(), dir, contributor)
				if err != nil {
					return err
				}
				if asJSON {
					if err := writeJSON(cmd, summary); err != nil {
						return err
					}
				} else {
					printOutcomes(cmd, summary.Outcomes)
					fmt.Fprintf(cmd.OutOrStdout(), "Found %d, skipped %d, catalogued %d, review %d, ocr %d, failed %d\n",
						summary.Found, summary.Skipped, summary.Processed, summary.Review, summary.OCR, summary.Failed)
				}
				if !watch {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for new documents (Ctrl+C to stop)\n", dir)
				w := inbox.New(dir, contributor, s.pipeline, s.logger, inbox.WithKeepSources())
				return w.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&contributor, "contributor", "", "Name recorded as the contributor")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep watching the directory for new documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the scan summary as JSON")
	return cmd
}

func printOutcomes(cmd *cobra.Command, outcomes []ingest.Outcome) {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		ref := o.EntryID
		if ref == "" {
			ref = o.ReviewID
		}
		detail := o.Reason
		if o.Error != "" {
			detail = o.Error
		}
		rows = append(rows, []string{o.Path, string(o.Status), ref, formatConfidence(o.Confidence), detail})
	}
	printTable(cmd.OutOrStdout(),
		[]string{"File", "Status", "Entry/Review", "Conf", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		"No documents processed",
	)
}
