package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/deps"
	"spines/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := preflight.CheckSystemDeps(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, st := range statuses {
				detail := st.Detail
				if st.Available() {
					detail = st.Path
				}
				rows = append(rows, []string{st.Name, st.Command, depState(st), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "State", "Detail"}, rows, nil))

			results := preflight.RunAll(cmd.Context(), cfg)
			rows = rows[:0]
			for _, r := range results {
				state := "ok"
				switch {
				case !r.Passed && r.Optional:
					state = "warn"
				case !r.Passed:
					state = "FAIL"
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "State", "Detail"}, rows, nil))

			if preflight.Failed(results) {
				return fmt.Errorf("one or more required checks failed")
			}
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func depState(st deps.Status) string {
	switch {
	case st.Available():
		return "ok"
	case st.Optional:
		return "missing (optional)"
	default:
		return "MISSING"
	}
}
