package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mycinema/internal/catalog"
	"mycinema/internal/ingest"
	"mycinema/internal/refresh"
	"mycinema/internal/runner"
)

const defaultListCount = 20

func newSyncCommand(ctx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Add new titles to the catalog",
	}
	syncCmd.AddCommand(newSyncListsCommand(ctx, "movies", catalog.KindMovie))
	syncCmd.AddCommand(newSyncListsCommand(ctx, "shows", catalog.KindShow))
	syncCmd.AddCommand(newSyncTitlesCommand(ctx))
	return syncCmd
}

func newSyncListsCommand(ctx *commandContext, use string, kind catalog.Kind) *cobra.Command {
	var lists []string
	var count int

	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Sync %s from ranked title lists", use),
		Long: fmt.Sprintf("Pull candidate titles from the named lists (see 'mycinema lists') and add %s\n"+
			"until --count new items made it into the catalog.", use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(lists) == 0 {
				return errors.New("at least one --list is required")
			}
			return ctx.withRunner(func(r *runner.Runner) error {
				result, err := r.SyncLists(cmd.Context(), kind, lists, count)
				if err != nil {
					return err
				}
				return printSyncResult(cmd, ctx, result)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&lists, "list", "l", nil, "Title list to pull from (repeatable)")
	cmd.Flags().IntVarP(&count, "count", "n", defaultListCount, "Number of new items to add")
	return cmd
}

func newSyncTitlesCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var count int

	cmd := &cobra.Command{
		Use:   "titles [flags] -- <title>...",
		Short: "Sync an explicit list of titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			target := count
			if target <= 0 {
				target = len(args)
			}
			return ctx.withRunner(func(r *runner.Runner) error {
				result, err := r.SyncTitles(cmd.Context(), kind, args, target)
				if err != nil {
					return err
				}
				return printSyncResult(cmd, ctx, result)
			})
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "movie", "Media kind: movie or show")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of new items to add (defaults to the number of titles)")
	return cmd
}

func printSyncResult(cmd *cobra.Command, ctx *commandContext, result ingest.Result) error {
	if wantsJSON(cmd, ctx.outputMode()) {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sync %s: %d added, %d skipped, %d failed\n",
		result.Kind, len(result.Added), len(result.Skipped), len(result.Failed))

	rows := make([][]string, 0, len(result.Added)+len(result.Skipped)+len(result.Failed))
	for _, title := range result.Added {
		rows = append(rows, []string{"added", title, ""})
	}
	for _, title := range result.Skipped {
		rows = append(rows, []string{"skipped", title, result.Reasons[title]})
	}
	for _, title := range result.Failed {
		rows = append(rows, []string{"failed", title, result.Reasons[title]})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Outcome", "Title", "Reason"}, rows, nil))
	}
	return nil
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-resolve links for stale catalog items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(func(r *runner.Runner) error {
				result, err := r.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				return printRefreshResult(cmd, ctx, result)
			})
		},
	}
}

func printRefreshResult(cmd *cobra.Command, ctx *commandContext, result refresh.Result) error {
	if wantsJSON(cmd, ctx.outputMode()) {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Refresh: %d updated, %d failed\n", result.Updated, result.Failed)
	if len(result.FailedTitles) > 0 {
		fmt.Fprintf(out, "Failed: %s\n", strings.Join(result.FailedTitles, ", "))
	}
	return nil
}

func newListsCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show the title lists available to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []catalog.Kind{catalog.KindMovie, catalog.KindShow}
			if strings.TrimSpace(kindFlag) != "" {
				kind, err := catalog.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				kinds = []catalog.Kind{kind}
			}
			return ctx.withRunner(func(r *runner.Runner) error {
				byKind := make(map[string][]string, len(kinds))
				rows := [][]string{}
				for _, kind := range kinds {
					names := r.Lists(kind)
					byKind[string(kind)] = names
					for _, name := range names {
						rows = append(rows, []string{string(kind), name})
					}
				}
				if wantsJSON(cmd, ctx.outputMode()) {
					return writeJSON(cmd, byKind)
				}
				printTable(cmd, "No lists available", []string{"Kind", "List"}, rows, nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Only show lists for this media kind")
	return cmd
}

func countLabel(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + plural
}
