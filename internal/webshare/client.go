package webshare

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mycinema/internal/linkmatch"
	"mycinema/internal/logging"
	"mycinema/internal/services"
)

const (
	defaultSearchLimit = 500
	defaultCategory    = "video"
)

type searchResponse struct {
	XMLName xml.Name     `xml:"response"`
	Status  string       `xml:"status"`
	Code    string       `xml:"code"`
	Message string       `xml:"message"`
	Total   int          `xml:"total"`
	Files   []searchFile `xml:"file"`
}

type searchFile struct {
	Ident string `xml:"ident"`
	Name  string `xml:"name"`
	Size  string `xml:"size"`
}

// Client searches Webshare. It satisfies linkmatch.Searcher.
type Client struct {
	baseURL     string
	session     *Session
	httpClient  *http.Client
	limiter     *rate.Limiter
	searchLimit int
	category    string
	logger      *slog.Logger
}

type settings struct {
	httpClient  *http.Client
	perSecond   float64
	searchLimit int
	category    string
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*settings)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithRateLimit caps search requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(s *settings) { s.perSecond = perSecond }
}

// WithSearchLimit sets how many files a single search asks for.
func WithSearchLimit(limit int) Option {
	return func(s *settings) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

// WithCategory restricts searches to a Webshare category.
func WithCategory(category string) Option {
	return func(s *settings) {
		if category = strings.TrimSpace(category); category != "" {
			s.category = category
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// New builds a client and its lazily authenticated session.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("webshare base url required")
	}
	cfg := settings{
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		searchLimit: defaultSearchLimit,
		category:    defaultCategory,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	client := &Client{
		baseURL:     baseURL,
		session:     NewSession(baseURL, username, password, cfg.httpClient, cfg.logger),
		httpClient:  cfg.httpClient,
		searchLimit: cfg.searchLimit,
		category:    cfg.category,
		logger:      logging.NewComponentLogger(cfg.logger, "webshare"),
	}
	if cfg.perSecond > 0 {
		client.limiter = rate.NewLimiter(rate.Limit(cfg.perSecond), 1)
	}
	return client, nil
}

// Session exposes the token owner, mainly so callers can invalidate it.
func (c *Client) Session() *Session {
	return c.session
}

// Search runs a full-text query and returns every file Webshare reports.
// A rejected token is dropped and the search retried once with a fresh login.
func (c *Client) Search(ctx context.Context, query string) ([]linkmatch.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "webshare", "search", "query must not be empty", nil)
	}
	resp, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		c.logger.Warn("webshare search rejected; renewing session",
			logging.String("query", query),
			logging.String("status", resp.Status),
			logging.String("code", resp.Code),
		)
		c.session.Invalidate()
		if resp, err = c.search(ctx, query); err != nil {
			return nil, err
		}
		if resp.Status != statusOK {
			return nil, services.Wrap(services.ErrTransient, "webshare", "search", describe(resp.Status, resp.Code, resp.Message), nil)
		}
	}

	files := make([]linkmatch.Candidate, 0, len(resp.Files))
	for _, f := range resp.Files {
		size, _ := strconv.ParseInt(strings.TrimSpace(f.Size), 10, 64)
		files = append(files, linkmatch.Candidate{
			ID:   strings.TrimSpace(f.Ident),
			Name: strings.TrimSpace(f.Name),
			Size: size,
		})
	}
	c.logger.Debug("webshare search complete",
		logging.String("query", query),
		logging.Int("files", len(files)),
	)
	return files, nil
}

func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrTransient, "webshare", "search", "rate limiter", err)
		}
	}
	form := url.Values{
		"what":     {query},
		"category": {c.category},
		"limit":    {strconv.Itoa(c.searchLimit)},
		"wst":      {token},
	}
	var resp searchResponse
	if err := postXML(ctx, c.httpClient, c.baseURL+"/search/", form, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// postXML submits a form and decodes the XML reply. Transport failures and
// non-200 responses are transient.
func postXML(ctx context.Context, client *http.Client, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/xml, application/xml")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return services.Wrap(services.ErrTransient, "webshare", endpoint, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrTransient, "webshare", endpoint, fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "webshare", endpoint, "decode response", err)
	}
	return nil
}
