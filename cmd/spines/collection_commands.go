package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spines/internal/catalog"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Group entries into static or filter-based collections",
	}
	collectionCmd.AddCommand(newCollectionListCommand(ctx))
	collectionCmd.AddCommand(newCollectionShowCommand(ctx))
	collectionCmd.AddCommand(newCollectionCreateCommand(ctx))
	collectionCmd.AddCommand(newCollectionUpdateCommand(ctx))
	collectionCmd.AddCommand(newCollectionDeleteCommand(ctx))
	collectionCmd.AddCommand(newCollectionAddCommand(ctx))
	collectionCmd.AddCommand(newCollectionRemoveCommand(ctx))
	return collectionCmd
}

type collectionFlags struct {
	name           string
	description    string
	icon           string
	mode           string
	contributors   []string
	authorContains string
	titleContains  string
	mediaType      string
	tags           []string
	readBy         []string
}

func (f *collectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Collection name")
	cmd.Flags().StringVar(&f.description, "description", "", "Collection description")
	cmd.Flags().StringVar(&f.icon, "icon", "", "Display icon")
	cmd.Flags().StringVar(&f.mode, "mode", catalog.CollectionStatic, "static (listed entries) or dynamic (filters)")
	cmd.Flags().StringSliceVar(&f.contributors, "contributor", nil, "Dynamic: match any of these contributors")
	cmd.Flags().StringVar(&f.authorContains, "author-contains", "", "Dynamic: author substring")
	cmd.Flags().StringVar(&f.titleContains, "title-contains", "", "Dynamic: title substring")
	cmd.Flags().StringVar(&f.mediaType, "media-type", "", "Dynamic: exact media type")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Dynamic: match any of these tags")
	cmd.Flags().StringSliceVar(&f.readBy, "read-by", nil, "Dynamic: match any of these readers")
}

func (f *collectionFlags) filters() catalog.CollectionFilters {
	return catalog.CollectionFilters{
		Contributor:    f.contributors,
		AuthorContains: strings.TrimSpace(f.authorContains),
		TitleContains:  strings.TrimSpace(f.titleContains),
		MediaType:      strings.TrimSpace(f.mediaType),
		TagsAny:        f.tags,
		ReadByAny:      f.readBy,
	}
}

// filtersChanged reports whether any filter flag was passed.
func (f *collectionFlags) filtersChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"contributor", "author-contains", "title-contains", "media-type", "tag", "read-by"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (f *collectionFlags) update(cmd *cobra.Command) catalog.CollectionUpdate {
	var u catalog.CollectionUpdate
	changed := cmd.Flags().Changed
	if changed("name") {
		u.Name = stringPtr(f.name)
	}
	if changed("description") {
		u.Description = stringPtr(f.description)
	}
	if changed("icon") {
		u.Icon = stringPtr(f.icon)
	}
	if changed("mode") {
		u.Mode = stringPtr(f.mode)
	}
	if f.filtersChanged(cmd) {
		filters := f.filters()
		u.Filters = &filters
	}
	return u
}

func newCollectionListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				collections, err := s.shelves.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, collections)
				}
				rows := make([][]string, 0, len(collections))
				for _, c := range collections {
					members := "-"
					if c.Mode == catalog.CollectionStatic {
						members = strconv.Itoa(len(c.BookIDs))
					}
					rows = append(rows, []string{c.ID, c.Name, c.Mode, members, c.Description})
				}
				printTable(cmd.OutOrStdout(),
					[]string{"ID", "Name", "Mode", "Entries", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					"No collections",
				)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print collections as JSON")
	return cmd
}

func newCollectionShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var limit int
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a collection and the entries it resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, false, func(s *stack) error {
				c, err := s.shelves.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries, err := s.shelves.Resolve(cmd.Context(), s.repo, c, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, struct {
						catalog.Collection
						Books []catalog.Entry `json:"books"`
					}{c, entries})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(collectionFields(c)))
				printEntries(cmd, entries, "Collection is empty")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many entries (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the collection as JSON")
	return cmd
}

func collectionFields(c catalog.Collection) [][2]string {
	pairs := [][2]string{
		{"ID", c.ID},
		{"Name", c.Name},
		{"Mode", c.Mode},
		{"Description", c.Description},
	}
	if c.Mode == catalog.CollectionDynamic {
		f := c.Filters
		pairs = append(pairs,
			[2]string{"Contributors", strings.Join(f.Contributor, ", ")},
			[2]string{"Author contains", f.AuthorContains},
			[2]string{"Title contains", f.TitleContains},
			[2]string{"Media type", f.MediaType},
			[2]string{"Tags", strings.Join(f.TagsAny, ", ")},
			[2]string{"Read by", strings.Join(f.ReadByAny, ", ")},
		)
	}
	return append(pairs, [2]string{"Updated", c.Updated.Local().Format("2006-01-02 15:04")})
}

func newCollectionCreateCommand(ctx *commandContext) *cobra.Command {
	var flags collectionFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				c, err := s.shelves.Create(cmd.Context(), catalog.Collection{
					Name:        flags.name,
					Description: strings.TrimSpace(flags.description),
					Icon:        strings.TrimSpace(flags.icon),
					Mode:        strings.TrimSpace(flags.mode),
					Filters:     flags.filters(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s collection %s (%s)\n", c.Mode, c.ID, c.Name)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCollectionUpdateCommand(ctx *commandContext) *cobra.Command {
	var flags collectionFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a collection's name, mode or filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				c, err := s.shelves.Update(cmd.Context(), args[0], flags.update(cmd))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated collection %s (%s)\n", c.ID, c.Name)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newCollectionDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collection; its entries stay catalogued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				if err := s.shelves.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %s\n", args[0])
				return nil
			})
		},
	}
}

func newCollectionAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-id> <entry-id>...",
		Short: "Add entries to a static collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				var c catalog.Collection
				for _, id := range args[1:] {
					if _, err := getEntry(cmd, s, id); err != nil {
						return err
					}
					var err error
					if c, err = s.shelves.AddBook(cmd.Context(), args[0], id); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d %s\n", c.ID, len(c.BookIDs), plural(len(c.BookIDs), "entry", "entries"))
				return nil
			})
		},
	}
}

func newCollectionRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-id> <entry-id>...",
		Short: "Remove entries from a static collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStack(cmd, true, func(s *stack) error {
				var c catalog.Collection
				for _, id := range args[1:] {
					var err error
					if c, err = s.shelves.RemoveBook(cmd.Context(), args[0], id); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d %s\n", c.ID, len(c.BookIDs), plural(len(c.BookIDs), "entry", "entries"))
				return nil
			})
		},
	}
}
