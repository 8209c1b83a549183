package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/catalog"
	"spines/internal/enrichment"
	"spines/internal/services"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and maintain catalogued entries",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogEditCommand(ctx))
	catalogCmd.AddCommand(newCatalogEnrichCommand(ctx))
	catalogCmd.AddCommand(newCatalogLowConfidenceCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogContributorsCommand(ctx))
	catalogCmd.AddCommand(newCatalogMarkReadCommand(ctx))
	catalogCmd.AddCommand(newCatalogCacheCommand(ctx))
	catalogCmd.AddCommand(newCatalogSyncMirrorCommand(ctx))
	catalogCmd.AddCommand(newCollectionCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var query string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				entries, err := s.repo.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				entries = catalog.Search(entries, query)
				if asJSON {
					return writeJSON(cmd, entries)
				}
				printEntries(cmd, entries, "Catalog is empty")
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "Filter by title, author or year")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func printEntries(cmd *cobra.Command, entries []catalog.Entry, empty string) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.Title,
			e.Author,
			intOrBlank(e.Year),
			e.FileType,
			e.ExtractionMethod,
			formatConfidence(e.ExtractionConfidence),
			strings.Join(e.Contributors, ", "),
		})
	}
	printTable(cmd.OutOrStdout(),
		[]string{"ID", "Title", "Author", "Year", "Type", "Method", "Conf", "Contributors"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		empty,
	)
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				entry, err := getEntry(cmd, s, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entry)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(entryFields(entry)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the entry as JSON")
	return cmd
}

func getEntry(cmd *cobra.Command, s *stack, id string) (catalog.Entry, error) {
	entry, ok, err := s.repo.Get(cmd.Context(), id)
	if err != nil {
		return catalog.Entry{}, err
	}
	if !ok {
		return catalog.Entry{}, services.Wrap(services.ErrNotFound, "catalog", "show", fmt.Sprintf("entry %q not found", id), nil)
	}
	return entry, nil
}

func entryFields(e catalog.Entry) [][2]string {
	related := make([]string, 0, len(e.RelatedCopies))
	for _, rc := range e.RelatedCopies {
		related = append(related, fmt.Sprintf("%s (%s %s)", rc.BookID, rc.SimilarityType, formatConfidence(rc.Confidence)))
	}
	pairs := [][2]string{
		{"ID", e.ID},
		{"Title", e.Title},
		{"Author", e.Author},
		{"Year", intOrBlank(e.Year)},
		{"ISBN", e.ISBN},
		{"Publisher", e.Publisher},
		{"Pages", intOrBlank(e.Pages)},
		{"URL", e.URL},
		{"Media type", e.MediaType},
		{"File", e.FolderName + "/" + e.Filename},
		{"Original file", e.OriginalFilename},
		{"Size", strconv.FormatInt(e.FileSize, 10)},
		{"Added", e.DateAdded.Local().Format("2006-01-02 15:04")},
		{"Method", e.ExtractionMethod},
		{"Confidence", formatConfidence(e.ExtractionConfidence)},
		{"Contributors", strings.Join(e.Contributors, ", ")},
		{"Read by", strings.Join(e.ReadBy, ", ")},
		{"Tags", strings.Join(e.Tags, ", ")},
		{"Manual edits", strings.Join(e.ManualEdits, ", ")},
		{"Related", strings.Join(related, "; ")},
	}
	if e.Notes != "" {
		pairs = append(pairs, [2]string{"Notes", e.Notes})
	}
	return pairs
}

func newCatalogEditCommand(ctx *commandContext) *cobra.Command {
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Correct entry metadata; edited fields are kept through later enrichment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				entry, err := catalog.UpdateEntry(cmd.Context(), s.repo, args[0], flags.edits(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (manual edits: %s)\n", entry.ID, strings.Join(entry.ManualEdits, ", "))
				return nil
			})
		},
	}
	flags.bindAll(cmd)
	return cmd
}

func newCatalogEnrichCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "enrich [id]...",
		Short: "Fill missing fields from the enrichment providers by ISBN",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("pass entry ids or --all")
			}
			return ctx.withStack(cmd, true, func(s *stack) error {
				if len(s.enrich.ProviderNames()) == 0 {
					return fmt.Errorf("no enrichment providers enabled; set enrichment.enabled = true")
				}
				entries, err := s.repo.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				if !all {
					entries = slices.DeleteFunc(entries, func(e catalog.Entry) bool {
						return !slices.Contains(args, e.ID)
					})
				}
				out := cmd.OutOrStdout()
				var updated int
				for _, entry := range entries {
					if entry.ISBN == "" {
						continue
					}
					rec, ok := s.enrich.Lookup(cmd.Context(), entry.ISBN)
					if !ok {
						continue
					}
					changed := entry.ApplyEnrichment(rec.Metadata(entry.ISBN))
					if len(changed) == 0 {
						continue
					}
					if err := s.repo.Upsert(cmd.Context(), entry); err != nil {
						return err
					}
					updated++
					fmt.Fprintf(out, "%s: %s from %s\n", entry.ID, strings.Join(changed, ", "), rec.Provider)
				}
				fmt.Fprintf(out, "Enriched %d of %d entr%s\n", updated, len(entries), plural(len(entries), "y", "ies"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Enrich every entry with an ISBN")
	return cmd
}

func newCatalogLowConfidenceCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "low-confidence",
		Short: "List entries extracted below a confidence threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				entries, err := catalog.LowConfidence(cmd.Context(), s.repo, threshold)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				printEntries(cmd, entries, "No low-confidence entries")
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", catalog.DefaultLowConfidenceThreshold, "Confidence cut-off")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				entries, err := s.repo.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				stats := catalog.ComputeStats(entries)
				if asJSON {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderFields([][2]string{
					{"Entries", strconv.Itoa(stats.Total)},
					{"Unique authors", strconv.Itoa(stats.UniqueAuthors)},
					{"With ISBN", strconv.Itoa(stats.WithISBN)},
				}))
				fmt.Fprintln(out, renderCounts("File type", stats.ByFileType))
				fmt.Fprintln(out, renderCounts("Media type", stats.ByMediaType))
				fmt.Fprintln(out, renderCounts("Method", stats.ByMethod))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print stats as JSON")
	return cmd
}

func newCatalogContributorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "contributors",
		Short: "List contributors and readers with their entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				meta, err := s.store.Metadata(cmd.Context())
				if err != nil {
					return err
				}
				entries, err := s.repo.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				contributed := make(map[string]int, len(meta.Contributors))
				read := make(map[string]int, len(meta.Readers))
				for _, name := range meta.Contributors {
					contributed[name] = 0
				}
				for _, name := range meta.Readers {
					read[name] = 0
				}
				for _, e := range entries {
					for _, name := range e.Contributors {
						contributed[name]++
					}
					for _, name := range e.ReadBy {
						read[name]++
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderCounts("Contributor", contributed))
				if len(read) > 0 {
					fmt.Fprintln(out, renderCounts("Reader", read))
				}
				return nil
			})
		},
	}
}

func newCatalogMarkReadCommand(ctx *commandContext) *cobra.Command {
	var reader string
	cmd := &cobra.Command{
		Use:   "mark-read <id>",
		Short: "Record that a reader finished an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				entry, added, err := catalog.MarkRead(cmd.Context(), s.repo, args[0], reader)
				if err != nil {
					return err
				}
				if err := s.store.AddReaders(cmd.Context(), reader); err != nil {
					return err
				}
				if !added {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already marked read by %s\n", entry.ID, strings.TrimSpace(reader))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s read by %s\n", entry.ID, strings.TrimSpace(reader))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reader, "reader", "", "Reader name")
	return cmd
}

func newCatalogCacheCommand(ctx *commandContext) *cobra.Command {
	var clearCache bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or clear the enrichment lookup cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if clearCache {
				if err := ctx.acquireLock(); err != nil {
					return err
				}
				defer ctx.releaseLock()
			}
			cache := enrichment.NewCache(cfg.EnrichmentCachePath(), ctx.ensureLogger())
			out := cmd.OutOrStdout()
			if !clearCache {
				fmt.Fprintf(out, "%d cached record(s) in %s\n", cache.Count(), cfg.EnrichmentCachePath())
				return nil
			}
			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared %d cached record(s)\n", count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearCache, "clear", false, "Delete every cached record")
	return cmd
}

func newCatalogSyncMirrorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-mirror",
		Short: "Rebuild the sqlite mirror from library.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				n, err := s.syncMirror(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mirrored %d entr%s to %s\n", n, plural(n, "y", "ies"), s.cfg.MirrorPath())
				return nil
			})
		},
	}
}
