package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"spines/internal/catalog"
	"spines/internal/review"
	"spines/internal/staging"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and resolve the review queue",
	}
	reviewCmd.AddCommand(newReviewListCommand(ctx))
	reviewCmd.AddCommand(newReviewShowCommand(ctx))
	reviewCmd.AddCommand(newReviewSimilarCommand(ctx))
	reviewCmd.AddCommand(newReviewApproveCommand(ctx))
	reviewCmd.AddCommand(newReviewRejectCommand(ctx))
	reviewCmd.AddCommand(newReviewCheckCommand(ctx))
	reviewCmd.AddCommand(newReviewSummaryCommand(ctx))
	reviewCmd.AddCommand(newReviewCleanupCommand(ctx))
	return reviewCmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				items, err := s.review.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, items)
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						item.Filename,
						item.Contributor,
						string(item.Status),
						item.ExtractionMethod,
						formatConfidence(item.ExtractionConfidence),
						item.Reason,
					})
				}
				printTable(cmd.OutOrStdout(),
					[]string{"ID", "File", "Contributor", "Status", "Method", "Conf", "Reason"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					"Review queue is empty",
				)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print items as JSON")
	return cmd
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queued document and its draft metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				item, err := s.review.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(reviewFields(item)))
				return nil
			})
		},
	}
}

func reviewFields(item review.Item) [][2]string {
	f := item.Draft.Fields
	attempts := make([]string, 0, len(item.Attempts))
	for _, m := range item.Attempts {
		attempts = append(attempts, string(m))
	}
	pairs := [][2]string{
		{"ID", item.ID},
		{"Path", item.Path},
		{"Contributor", item.Contributor},
		{"Status", string(item.Status)},
		{"Reason", item.Reason},
		{"Added", item.AddedAt.Local().Format("2006-01-02 15:04")},
		{"Method", item.ExtractionMethod},
		{"Confidence", formatConfidence(item.ExtractionConfidence)},
		{"ISBN found", yesNo(item.IdentifierFound)},
		{"Attempts", strings.Join(attempts, ", ")},
		{"Title", f.Title},
		{"Author", f.Author},
		{"Year", intOrBlank(f.Year)},
		{"ISBN", f.ISBN},
		{"Publisher", f.Publisher},
	}
	for _, extra := range [][2]string{
		{"Duplicate of", item.DuplicateOf},
		{"Multicopy of", item.PotentialMulticopyOf},
		{"Error", item.Error},
		{"Draft error", item.Draft.Error},
	} {
		if extra[1] != "" {
			pairs = append(pairs, extra)
		}
	}
	return pairs
}

func newReviewSimilarCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "similar <id>",
		Short: "List catalog entries similar to a queued document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				matches, err := s.review.Similar(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{
						m.EntryID,
						m.Entry.Title,
						m.Entry.Author,
						string(m.Classification),
						formatConfidence(m.Confidence),
						strings.Join(m.Entry.Contributors, ", "),
					})
				}
				printTable(cmd.OutOrStdout(),
					[]string{"Entry", "Title", "Author", "Match", "Conf", "Contributors"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					"No similar entries",
				)
				return nil
			})
		},
	}
}

func newReviewApproveCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags
	var action string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Catalogue a queued document, optionally correcting its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			copyAction, err := catalog.ParseCopyAction(action)
			if err != nil {
				return err
			}
			return ctx.withStack(cmd, true, func(s *stack) error {
				approval := review.Approval{Action: copyAction, Edits: flags.edits(cmd)}
				if interactive {
					if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
						return errors.New("--interactive needs a terminal")
					}
					item, err := s.review.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					approval, err = runApprovalForm(item, approval)
					if err != nil {
						return err
					}
				}
				entryID, err := s.review.Approve(cmd.Context(), args[0], approval)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved %s as catalog entry %s\n", args[0], entryID)
				return nil
			})
		},
	}

	flags.bindCore(cmd)
	cmd.Flags().StringVar(&action, "action", string(catalog.CopyAuto), "Copy action: auto, separate_copy or add_to_existing")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Edit the metadata in a form before approving")
	return cmd
}

func newReviewRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Drop a queued document and delete its temp files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				if err := s.review.Reject(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", args[0])
				return nil
			})
		},
	}
}

func newReviewCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Mark items whose temp file disappeared, and restore ones that came back",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				changed, err := s.review.CheckLiveness(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) changed status\n", changed)
				return nil
			})
		},
	}
}

func newReviewSummaryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count queued documents per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				summary, err := s.review.Summary(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, summary)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCounts("Status", map[string]int{
					"total":                         summary.Total,
					string(review.StatusPending):     summary.Pending,
					string(review.StatusFileMissing): summary.FileMissing,
					string(review.StatusFailed):      summary.Failed,
				}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func newReviewCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete temp files no queue references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				keep, err := s.ocr.PendingPaths(cmd.Context())
				if err != nil {
					return err
				}
				res, err := s.review.CleanupTemp(cmd.Context(), s.cfg.Paths.TempDir, keep...)
				if err != nil {
					return err
				}
				scratch := staging.CleanStale(cmd.Context(), s.cfg.Paths.TempDir, staging.DefaultMaxAge, s.logger)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s) and %d stale scratch entr%s, kept %d recent, %d error(s)\n",
					res.Cleaned, len(scratch.Removed), pluralY(len(scratch.Removed)), res.Recent, res.Errors+len(scratch.Errors))
				return nil
			})
		},
	}
}
