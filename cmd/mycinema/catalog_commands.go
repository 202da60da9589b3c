package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mycinema/internal/catalog"
	"mycinema/internal/fileutil"
	"mycinema/internal/runner"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the catalog",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogDeleteCommand(ctx))
	catalogCmd.AddCommand(newCatalogExportCommand(ctx))
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogUpdateMetadataCommand(ctx))
	return catalogCmd
}

func optionalKindFlag(value string) (catalog.Kind, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return catalog.ParseKind(value)
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var query string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog items",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := optionalKindFlag(kindFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			items, err := store.Search(cmd.Context(), kind, query)
			if err != nil {
				return err
			}
			if wantsJSON(cmd, ctx.outputMode()) {
				if items == nil {
					items = []*catalog.Item{}
				}
				return writeJSON(cmd, items)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.ID, 10),
					string(item.Kind),
					item.Title,
					formatYear(item.Year),
					strconv.Itoa(len(item.AllLinks())),
					formatTimestamp(item.LastLinkCheck),
				})
			}
			printTable(cmd, "Catalog is empty",
				[]string{"ID", "Kind", "Title", "Year", "Links", "Checked"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Filter by media kind")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title substring")
	return cmd
}

func parseItemID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q", value)
	}
	return id, nil
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog item with its links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			item, err := store.GetItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			if wantsJSON(cmd, ctx.outputMode()) {
				return writeJSON(cmd, item)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s) [%s]\n", item.Title, formatYear(item.Year), item.Kind)
			if len(item.Genres) > 0 {
				fmt.Fprintf(out, "Genres: %s\n", strings.Join(item.Genres, ", "))
			}
			fmt.Fprintf(out, "Last link check: %s\n", formatTimestamp(item.LastLinkCheck))

			rows := [][]string{}
			for _, link := range item.Links {
				rows = append(rows, []string{"", link.FileID, link.Quality, verifiedMark(link.Verified)})
			}
			for _, season := range item.Seasons {
				for _, episode := range season.Episodes {
					label := fmt.Sprintf("S%02dE%02d", season.Number, episode.Number)
					for _, link := range episode.Links {
						rows = append(rows, []string{label, link.FileID, link.Quality, verifiedMark(link.Verified)})
					}
				}
			}
			printTable(cmd, "No links", []string{"Episode", "File", "Quality", "Verified"}, rows, nil)
			return nil
		},
	}
}

func verifiedMark(verified bool) string {
	if verified {
		return "yes"
	}
	return ""
}

func newCatalogDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an item from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.DeleteItem(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("item %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %d\n", id)
			return nil
		},
	}
}

func newCatalogExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON backup of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			backup, err := store.Export(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(outPath) == "" || outPath == "-" {
				return catalog.WriteBackup(cmd.OutOrStdout(), backup)
			}
			err = fileutil.WriteAtomic(outPath, 0o600, func(w io.Writer) error {
				return catalog.WriteBackup(w, backup)
			})
			if err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s and %s to %s\n",
				countLabel(len(backup.Items), "item", "items"),
				countLabel(len(backup.Blacklist), "blacklist entry", "blacklist entries"),
				outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Destination file (stdout when empty)")
	return cmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the catalog with a JSON backup",
		Long:  "Replace every catalog item and blacklist entry with the contents of a backup.\nWatch history is cleared. Use '-' to read the backup from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("import replaces the whole catalog; pass --yes to confirm")
			}
			var reader io.Reader
			if args[0] == "-" {
				reader = cmd.InOrStdin()
			} else {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open backup: %w", err)
				}
				defer file.Close()
				reader = file
			}
			backup, err := catalog.ReadBackup(reader)
			if err != nil {
				return err
			}
			return ctx.withRunner(func(r *runner.Runner) error {
				started := time.Now()
				if err := r.Import(cmd.Context(), backup); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s and %s in %s\n",
					countLabel(len(backup.Items), "item", "items"),
					countLabel(len(backup.Blacklist), "blacklist entry", "blacklist entries"),
					time.Since(started).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm replacing the catalog")
	return cmd
}

func newCatalogUpdateMetadataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update-metadata",
		Short: "Re-fetch metadata for every catalog item",
		Long:  "Look every item up again and merge the fresh metadata into the catalog.\nNew seasons and episodes are added; links and existing episodes are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(r *runner.Runner) error {
				result, err := r.UpdateMetadata(cmd.Context())
				if err != nil {
					return err
				}
				if wantsJSON(cmd, ctx.outputMode()) {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Metadata: %d updated, %d skipped, %d failed\n", result.Updated, result.Skipped, result.Failed)
				if len(result.FailedTitles) > 0 {
					fmt.Fprintf(out, "Failed: %s\n", strings.Join(result.FailedTitles, ", "))
				}
				return nil
			})
		},
	}
}
