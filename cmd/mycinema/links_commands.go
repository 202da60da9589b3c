package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mycinema/internal/linkmatch"
	"mycinema/internal/runner"
)

func newLinksCommand(ctx *commandContext) *cobra.Command {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Search for playable files",
	}
	linksCmd.AddCommand(newLinksFindCommand(ctx))
	return linksCmd
}

func newLinksFindCommand(ctx *commandContext) *cobra.Command {
	var q linkmatch.Query

	cmd := &cobra.Command{
		Use:   "find <title>",
		Short: "Look up links for a title without changing the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Title = strings.Join(args, " ")
			return ctx.withRunner(func(r *runner.Runner) error {
				links, err := r.FindLinks(cmd.Context(), q)
				if err != nil {
					return err
				}
				if len(links) == 0 {
					return fmt.Errorf("no suitable links found for %q", q.Title)
				}
				if wantsJSON(cmd, ctx.outputMode()) {
					return writeJSON(cmd, links)
				}
				rows := make([][]string, 0, len(links))
				for _, link := range links {
					rows = append(rows, []string{link.FileID, link.Quality, strconv.FormatInt(link.Size, 10), link.Name})
				}
				printTable(cmd, "No links",
					[]string{"File", "Quality", "Bytes", "Name"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft})
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&q.Year, "year", 0, "Release year to search with")
	cmd.Flags().IntVar(&q.Season, "season", 0, "Season number (requires --episode)")
	cmd.Flags().IntVar(&q.Episode, "episode", 0, "Episode number (requires --season)")
	return cmd
}
