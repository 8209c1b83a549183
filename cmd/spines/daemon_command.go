package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"spines/internal/daemon"
	"spines/internal/inbox"
	"spines/internal/lock"
	"spines/internal/logging"
	"spines/internal/preflight"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var contributor string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run scheduled OCR batches, queue maintenance and the inbox watcher",
		Long: `Run in the foreground until interrupted. The daemon holds the data
directory lock, so mutating commands refuse to run while it is up.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				if r.Passed {
					continue
				}
				if r.Optional {
					logging.WarnWithContext(logger, "preflight check failed", "preflight_warning",
						logging.String("check", r.Name),
						logging.String("detail", r.Detail),
						logging.String(logging.FieldImpact, "daemon continues without it"))
					continue
				}
				logger.Error("preflight check failed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			}
			if preflight.Failed(results) {
				return errors.New("preflight failed; run `spines deps` for details")
			}
			for _, st := range preflight.CheckSystemDeps(cfg) {
				if !st.Available() {
					logging.WarnWithContext(logger, "external tool unavailable", "dependency_missing",
						logging.String("tool", st.Name),
						logging.String("command", st.Command),
						logging.Bool("optional", st.Optional),
						logging.String(logging.FieldImpact, "extraction methods using it will fail"))
				}
			}

			return ctx.withStack(cmd, false, func(s *stack) error {
				work := &sync.Mutex{}
				deps := daemon.Deps{OCR: s.ocr, Review: s.review, Notifier: s.notifier, Work: work}
				if cfg.Schedule.InboxDir != "" {
					name := strings.TrimSpace(contributor)
					if name == "" {
						return errors.New("--contributor must not be empty when an inbox is configured")
					}
					deps.Inbox = inbox.New(cfg.Schedule.InboxDir, name, s.pipeline, logger, inbox.WithLocker(work))
				}
				d, err := daemon.New(cfg, logger, deps)
				if err != nil {
					return err
				}
				if err := d.Start(cmd.Context()); err != nil {
					if errors.Is(err, lock.ErrBusy) {
						return fmt.Errorf("%w; another spines daemon or command is running", err)
					}
					return err
				}
				printDaemonStatus(cmd, d.Status())
				<-cmd.Context().Done()
				fmt.Fprintln(cmd.OutOrStdout(), "Stopping...")
				d.Stop()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&contributor, "contributor", "inbox", "Contributor recorded for inbox documents")
	return cmd
}

func printDaemonStatus(cmd *cobra.Command, st daemon.Status) {
	out := cmd.OutOrStdout()
	inboxDir := st.InboxDir
	if inboxDir == "" {
		inboxDir = "(disabled)"
	}
	fmt.Fprintln(out, renderFields([][2]string{
		{"Run ID", st.RunID},
		{"Lock", st.LockFilePath},
		{"Inbox", inboxDir},
	}))
	rows := make([][]string, 0, len(st.Jobs))
	for _, job := range st.Jobs {
		next := ""
		if !job.Next.IsZero() {
			next = job.Next.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{job.Name, job.Spec, next})
	}
	printTable(out, []string{"Job", "Schedule", "Next run"}, rows, nil, "No jobs scheduled")
}
