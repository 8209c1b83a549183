package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/ocrqueue"
)

func newOCRCommand(ctx *commandContext) *cobra.Command {
	ocrCmd := &cobra.Command{
		Use:   "ocr",
		Short: "Manage the OCR batch queue",
	}
	ocrCmd.AddCommand(newOCRListCommand(ctx))
	ocrCmd.AddCommand(newOCRAddCommand(ctx))
	ocrCmd.AddCommand(newOCRAddEntryCommand(ctx))
	ocrCmd.AddCommand(newOCRProcessCommand(ctx))
	ocrCmd.AddCommand(newOCRSummaryCommand(ctx))
	return ocrCmd
}

func newOCRListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List OCR queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				items, err := s.ocr.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				printOCRItems(cmd, items)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func printOCRItems(cmd *cobra.Command, items []ocrqueue.Item) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.Reason
		if item.Error != "" {
			detail = item.Error
		}
		rows = append(rows, []string{
			item.ID,
			item.Filename,
			string(item.Status),
			item.Contributor,
			item.EntryID,
			detail,
		})
	}
	printTable(cmd.OutOrStdout(),
		[]string{"ID", "File", "Status", "Contributor", "Entry", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
		"OCR queue is empty",
	)
}

func newOCRAddCommand(ctx *commandContext) *cobra.Command {
	var contributor string
	var reason string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Queue a document for OCR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(contributor) == "" {
				return errors.New("--contributor is required")
			}
			return ctx.withStack(cmd, true, func(s *stack) error {
				staged, err := s.pipeline.Stage(args[0])
				if err != nil {
					return err
				}
				item, err := s.ocr.Add(cmd.Context(), staged, reason, contributor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as %s\n", item.Filename, item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contributor, "contributor", "", "Name recorded as the contributor")
	cmd.Flags().StringVar(&reason, "reason", "manual_request", "Reason stored with the queue item")
	return cmd
}

func newOCRAddEntryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add-entry <entry-id>...",
		Short: "Queue catalogued entries for OCR re-extraction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				added, skipped, err := s.ocr.AddEntries(cmd.Context(), args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %d entr%s\n", len(added), plural(len(added), "y", "ies"))
				if len(skipped) > 0 {
					fmt.Fprintf(out, "Skipped: %s\n", strings.Join(skipped, ", "))
				}
				return nil
			})
		},
	}
}

func newOCRProcessCommand(ctx *commandContext) *cobra.Command {
	var maxItems int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run OCR over pending queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				res, err := s.ocr.Process(cmd.Context(), maxItems)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, res)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Result", map[string]int{
					"processed": res.Processed,
					"completed": res.Completed,
					"failed":    res.Failed,
					"missing":   res.Missing,
					"error":     res.Errors,
				}))
				for _, id := range res.EntryIDs {
					fmt.Fprintf(cmd.OutOrStdout(), "Catalogued %s\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxItems, "max", 0, "Process at most this many items (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch result as JSON")
	return cmd
}

func newOCRSummaryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count OCR queue items per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				summary, err := s.ocr.Summary(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Status", map[string]int{
					"total":                          summary.Total,
					string(ocrqueue.StatusPending):   summary.Pending,
					string(ocrqueue.StatusCompleted): summary.Completed,
					string(ocrqueue.StatusFailed):    summary.Failed,
					string(ocrqueue.StatusMissing):   summary.Missing,
					string(ocrqueue.StatusError):     summary.Errors,
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
