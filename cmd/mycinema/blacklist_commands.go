package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mycinema/internal/catalog"
)

func newBlacklistCommand(ctx *commandContext) *cobra.Command {
	blacklistCmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Inspect titles rejected by sync runs",
	}
	blacklistCmd.AddCommand(newBlacklistListCommand(ctx))
	blacklistCmd.AddCommand(newBlacklistRemoveCommand(ctx))
	return blacklistCmd
}

func newBlacklistListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List blacklisted titles",
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

			entries, err := store.Blacklist(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if wantsJSON(cmd, ctx.outputMode()) {
				if entries == nil {
					entries = []catalog.BlacklistEntry{}
				}
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				created := entry.CreatedAt
				rows = append(rows, []string{string(entry.Kind), entry.Title, entry.Reason, formatTimestamp(&created)})
			}
			printTable(cmd, "Blacklist is empty", []string{"Kind", "Title", "Reason", "Added"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Filter by media kind")
	return cmd
}

func newBlacklistRemoveCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "remove <title>",
		Short: "Allow a blacklisted title to be synced again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.RemoveBlacklist(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%q is not blacklisted for %s", args[0], kind)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from the %s blacklist\n", args[0], kind)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "movie", "Media kind: movie or show")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Record and list watched items",
	}
	historyCmd.AddCommand(newHistoryAddCommand(ctx))
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	return historyCmd
}

func newHistoryAddCommand(ctx *commandContext) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "add <item-id>",
		Short: "Mark a catalog item as watched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			var watchedAt time.Time
			if strings.TrimSpace(at) != "" {
				watchedAt, err = time.Parse(time.RFC3339, strings.TrimSpace(at))
				if err != nil {
					return fmt.Errorf("invalid --at timestamp %q: want RFC 3339", at)
				}
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.AddHistory(cmd.Context(), id, watchedAt)
			if err != nil {
				return err
			}
			if wantsJSON(cmd, ctx.outputMode()) {
				return writeJSON(cmd, entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %q as watched\n", entry.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Watch time in RFC 3339 (defaults to now)")
	return cmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recently watched items",
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

			entries, err := store.RecentHistory(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			if wantsJSON(cmd, ctx.outputMode()) {
				if entries == nil {
					entries = []catalog.HistoryEntry{}
				}
				return writeJSON(cmd, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				watched := entry.WatchedAt
				rows = append(rows, []string{
					strconv.FormatInt(entry.ItemID, 10),
					string(entry.Kind),
					entry.Title,
					formatTimestamp(&watched),
				})
			}
			printTable(cmd, "No watch history", []string{"Item", "Kind", "Title", "Watched"}, rows,
				[]columnAlignment{alignRight})
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Filter by media kind")
	cmd.Flags().IntVarP(&limit, "limit", "n", catalog.DefaultHistoryLimit, "Maximum entries to show")
	return cmd
}
