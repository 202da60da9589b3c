package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mycinema/internal/services"
)

// Result represents a single TMDB search or list entry.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
}

// DisplayTitle returns the movie title or show name.
func (r Result) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// Response models the TMDB paginated search and list response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Genre is a named TMDB genre.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetails captures the fields of /movie/{id} the catalog stores.
type MovieDetails struct {
	Result
	Runtime int     `json:"runtime"`
	Genres  []Genre `json:"genres"`
}

// SeasonSummary is the per-season entry embedded in TV details.
type SeasonSummary struct {
	SeasonNumber int    `json:"season_number"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
}

// TVDetails captures the fields of /tv/{id} the catalog stores.
type TVDetails struct {
	Result
	Genres  []Genre         `json:"genres"`
	Seasons []SeasonSummary `json:"seasons"`
}

// Episode describes a single TMDB episode entry.
type Episode struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Runtime       int    `json:"runtime"`
	AirDate       string `json:"air_date"`
}

// SeasonDetails captures the full TMDB season payload (episodes included).
type SeasonDetails struct {
	ID           int64     `json:"id"`
	AirDate      string    `json:"air_date"`
	SeasonNumber int       `json:"season_number"`
	Episodes     []Episode `json:"episodes"`
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMovie searches TMDB movies for the supplied title.
func (c *Client) SearchMovie(ctx context.Context, query string) (*Response, error) {
	return c.search(ctx, "movie", query)
}

// SearchTV searches TMDB shows for the supplied title.
func (c *Client) SearchTV(ctx context.Context, query string) (*Response, error) {
	return c.search(ctx, "tv", query)
}

func (c *Client) search(ctx context.Context, kind, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	var payload Response
	if err := c.get(ctx, "/search/"+kind, params, kind+" search", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetMovieDetails fetches movie details by TMDB ID.
func (c *Client) GetMovieDetails(ctx context.Context, movieID int64) (*MovieDetails, error) {
	if movieID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "movie details", "movie id must be positive", nil)
	}
	var payload MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", movieID), nil, "movie details", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetTVDetails fetches show details, including the season list, by TMDB ID.
func (c *Client) GetTVDetails(ctx context.Context, showID int64) (*TVDetails, error) {
	if showID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "tv details", "show id must be positive", nil)
	}
	var payload TVDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", showID), nil, "tv details", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetSeasonDetails fetches the full season metadata for a TV show, including episodes.
// Season 0 holds specials.
func (c *Client) GetSeasonDetails(ctx context.Context, showID int64, seasonNumber int) (*SeasonDetails, error) {
	if showID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "season details", "show id must be positive", nil)
	}
	if seasonNumber < 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "season details", "season number must not be negative", nil)
	}
	var payload SeasonDetails
	path := fmt.Sprintf("/tv/%d/season/%d", showID, seasonNumber)
	if err := c.get(ctx, path, nil, "season details", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListPage fetches one page of a ranked list such as "movie/top_rated".
func (c *Client) ListPage(ctx context.Context, list string, page int) (*Response, error) {
	list = strings.Trim(strings.TrimSpace(list), "/")
	if list == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "list", "list name required", nil)
	}
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	var payload Response
	if err := c.get(ctx, "/"+list, params, "list "+list, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// get issues an authenticated GET and decodes the JSON body into out. Network
// failures and non-200 responses are transient; 404 maps to ErrNotFound.
func (c *Client) get(ctx context.Context, path string, params url.Values, label string, out any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrTransient, "tmdb", label, "rate limiter", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tmdb", label, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "tmdb", label, fmt.Sprintf("returned 404 (latency=%v)", latency), nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return services.Wrap(services.ErrConfiguration, "tmdb", label, "api key rejected", nil)
	case resp.StatusCode != http.StatusOK:
		return services.Wrap(services.ErrTransient, "tmdb", label, fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "tmdb", label, "decode response", err)
	}
	return nil
}

// ParseYear extracts the year from a TMDB "YYYY-MM-DD" date. Zero means unknown.
func ParseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
