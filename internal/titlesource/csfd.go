package titlesource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mycinema/internal/catalog"
	"mycinema/internal/logging"
	"mycinema/internal/services"
)

const (
	csfdPageStep         = 100
	defaultCSFDUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultCSFDMaxItems  = 500
	defaultCSFDMaxPages  = 25
	defaultCSFDMergedCap = 1000
	csfdTitleSelector    = "a.film-title-name"
)

// ParseTitles extracts ranking titles from a CSFD chart page. Titles are read
// from the link's title attribute, in page order.
func ParseTitles(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse csfd html: %w", err)
	}
	var titles []string
	doc.Find(csfdTitleSelector).Each(func(_ int, s *goquery.Selection) {
		if title, ok := s.Attr("title"); ok {
			if title = strings.TrimSpace(title); title != "" {
				titles = append(titles, title)
			}
		}
	})
	return titles, nil
}

// Scraper downloads CSFD ranking pages.
type Scraper struct {
	baseURL          string
	userAgent        string
	httpClient       *http.Client
	maxItems         int
	maxFilteredPages int
	logger           *slog.Logger
}

// ScraperOptions tunes a Scraper. Zero values select defaults.
type ScraperOptions struct {
	BaseURL          string
	UserAgent        string
	MaxItems         int
	MaxFilteredPages int
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// NewScraper builds a scraper for the given CSFD base URL.
func NewScraper(opts ScraperOptions) *Scraper {
	s := &Scraper{
		baseURL:          strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		userAgent:        strings.TrimSpace(opts.UserAgent),
		httpClient:       opts.HTTPClient,
		maxItems:         opts.MaxItems,
		maxFilteredPages: opts.MaxFilteredPages,
		logger:           logging.NewComponentLogger(opts.Logger, "csfd"),
	}
	if s.baseURL == "" {
		s.baseURL = "https://www.csfd.cz"
	}
	if s.userAgent == "" {
		s.userAgent = defaultCSFDUserAgent
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if s.maxItems <= 0 {
		s.maxItems = defaultCSFDMaxItems
	}
	if s.maxFilteredPages <= 0 {
		s.maxFilteredPages = defaultCSFDMaxPages
	}
	return s
}

// GeneralRanking walks a chart paginated with ?from=N in steps of 100 until
// maxItems unique titles are collected, a later page is empty, or a later
// page adds fewer than 100 new titles.
func (s *Scraper) GeneralRanking(ctx context.Context, path string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for from := 0; len(all) < s.maxItems; from += csfdPageStep {
		pageURL := s.baseURL + path
		if from > 0 {
			pageURL += "?from=" + strconv.Itoa(from)
		}
		titles, err := s.fetch(ctx, pageURL)
		if err != nil {
			if from == 0 {
				return nil, err
			}
			s.logger.Warn("csfd page failed; keeping earlier pages", logging.String("url", pageURL), logging.Error(err))
			break
		}
		if len(titles) == 0 {
			break
		}
		found := 0
		for _, title := range titles {
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			all = append(all, title)
			found++
			if len(all) >= s.maxItems {
				break
			}
		}
		if found < csfdPageStep && from > 0 {
			break
		}
	}
	s.logger.Debug("csfd chart scraped", logging.String("path", path), logging.Int("titles", len(all)))
	return all, nil
}

// FilteredRanking walks a custom-selection chart paginated with &page=N until
// an empty page or maxFilteredPages.
func (s *Scraper) FilteredRanking(ctx context.Context, path string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for page := 1; page <= s.maxFilteredPages; page++ {
		pageURL := s.baseURL + path
		if page > 1 {
			pageURL += "&page=" + strconv.Itoa(page)
		}
		titles, err := s.fetch(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			s.logger.Warn("csfd page failed; keeping earlier pages", logging.String("url", pageURL), logging.Error(err))
			break
		}
		if len(titles) == 0 {
			break
		}
		for _, title := range titles {
			if _, ok := seen[title]; ok {
				continue
			}
			seen[title] = struct{}{}
			all = append(all, title)
		}
	}
	s.logger.Debug("csfd filtered chart scraped", logging.String("path", path), logging.Int("titles", len(all)))
	return all, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "cs-CZ,cs;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "csfd", "fetch", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrTransient, "csfd", "fetch", fmt.Sprintf("%s returned %d", pageURL, resp.StatusCode), nil)
	}
	titles, err := ParseTitles(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "csfd", "parse", pageURL, err)
	}
	return titles, nil
}

// csfdChart is a general ranking paginated with ?from=.
type csfdChart struct {
	name    string
	kind    catalog.Kind
	path    string
	scraper *Scraper
}

func (c *csfdChart) Name() string       { return c.name }
func (c *csfdChart) Kind() catalog.Kind { return c.kind }

func (c *csfdChart) Titles(ctx context.Context, _ int) ([]string, error) {
	return c.scraper.GeneralRanking(ctx, c.path)
}

// csfdSelection is one or more custom-selection charts. Several charts are
// scraped concurrently and interleaved up to mergedCap titles.
type csfdSelection struct {
	name      string
	kind      catalog.Kind
	paths     []string
	mergedCap int
	scraper   *Scraper
}

func (c *csfdSelection) Name() string       { return c.name }
func (c *csfdSelection) Kind() catalog.Kind { return c.kind }

func (c *csfdSelection) Titles(ctx context.Context, _ int) ([]string, error) {
	sources := make([]Source, 0, len(c.paths))
	for _, path := range c.paths {
		sources = append(sources, &filteredPage{selection: c, path: path})
	}
	return FetchAll(ctx, c.mergedCap, sources...)
}

type filteredPage struct {
	selection *csfdSelection
	path      string
}

func (f *filteredPage) Name() string       { return f.selection.name }
func (f *filteredPage) Kind() catalog.Kind { return f.selection.kind }

func (f *filteredPage) Titles(ctx context.Context, _ int) ([]string, error) {
	return f.selection.scraper.FilteredRanking(ctx, f.path)
}
