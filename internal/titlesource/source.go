package titlesource

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"mycinema/internal/catalog"
)

// Source yields an ordered list of candidate titles. limit is a hint; zero
// lets the source apply its own cap.
type Source interface {
	Name() string
	Kind() catalog.Kind
	Titles(ctx context.Context, limit int) ([]string, error)
}

// Interleave merges lists round-robin, keeping the first occurrence of each
// title, and stops at limit when limit > 0.
func Interleave(limit int, lists ...[]string) []string {
	longest := 0
	total := 0
	for _, list := range lists {
		total += len(list)
		if len(list) > longest {
			longest = len(list)
		}
	}
	if limit > 0 && total > limit {
		total = limit
	}
	merged := make([]string, 0, total)
	seen := make(map[string]struct{}, total)
	for i := 0; i < longest; i++ {
		for _, list := range lists {
			if i >= len(list) {
				continue
			}
			title := strings.TrimSpace(list[i])
			if title == "" {
				continue
			}
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			merged = append(merged, title)
			if limit > 0 && len(merged) >= limit {
				return merged
			}
		}
	}
	return merged
}

// FetchAll fetches every source concurrently and interleaves the results in
// source order. The first failure cancels the rest.
func FetchAll(ctx context.Context, limit int, sources ...Source) ([]string, error) {
	results := make([][]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			titles, err := src.Titles(gctx, limit)
			if err != nil {
				return err
			}
			results[i] = titles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Interleave(limit, results...), nil
}
