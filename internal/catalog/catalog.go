// Package catalog is a cached, throttled client for the RAWG game catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arcade/internal/cache"
	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/observability"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://api.rawg.io/api"
	DefaultCacheTTL = 30 * time.Minute
	DefaultPageSize = 20
	MaxPageSize     = 40
	requestTimeout  = 10 * time.Second
	maxBodyBytes    = 4 << 20
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("Game catalog is not configured")
	// ErrUpstream wraps failed or malformed upstream responses.
	ErrUpstream = errors.New("Game catalog unavailable")
)

// MsgGameNotFound is the NotFound message for unknown game ids.
const MsgGameNotFound = "Game not found"

// Game is the catalog entry shape returned to clients.
type Game struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Rating   float64  `json:"rating"`
	ImageURL string   `json:"imageUrl"`
	Released string   `json:"released"`
	Genres   []string `json:"genres"`
}

// GameDetail adds the fields only the detail endpoint returns.
type GameDetail struct {
	Game
	Description string   `json:"description"`
	Website     string   `json:"website"`
	Platforms   []string `json:"platforms"`
	Metacritic  int64    `json:"metacritic"`
}

// Page is one page of search results.
type Page struct {
	Count   int64  `json:"count"`
	Next    bool   `json:"next"`
	Results []Game `json:"results"`
}

// SearchParams are the supported RAWG list filters.
type SearchParams struct {
	Search   string
	Ordering string
	Genres   string
	Page     int
	PageSize int
}

// Options configures a Client.
type Options struct {
	APIKey        string
	BaseURL       string
	RatePerSecond float64
	CacheTTL      time.Duration
	HTTPClient    *http.Client
}

type Client struct {
	apiKey   string
	baseURL  string
	cacheTTL time.Duration
	http     *http.Client
	limiter  *rate.Limiter
}

// New returns a Client. A Client without an API key answers every call with
// ErrNotConfigured.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = max(int(opts.RatePerSecond), 1)
	}

	return &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		baseURL:  baseURL,
		cacheTTL: ttl,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Search lists games matching p.
func (c *Client) Search(ctx context.Context, p SearchParams) (*Page, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	query := p.values()
	var page Page
	err := c.cached(ctx, "search", cache.CatalogSearchKey(query.Encode()), &page, func() error {
		body, err := c.get(ctx, "search", "/games", query)
		if err != nil {
			return err
		}
		page = parsePage(body)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Game returns the detail record for a RAWG id or slug.
func (c *Client) Game(ctx context.Context, id string) (*GameDetail, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, models.NewValidationError("Invalid game id")
	}

	var detail GameDetail
	err := c.cached(ctx, "detail", cache.CatalogGameKey(id), &detail, func() error {
		body, err := c.get(ctx, "detail", "/games/"+url.PathEscape(id), url.Values{})
		if err != nil {
			return err
		}
		detail = parseDetail(gjson.ParseBytes(body))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) cached(ctx context.Context, endpoint, key string, dest any, fetch func() error) error {
	missed := false
	err := cache.Aside(ctx, key, dest, c.cacheTTL, func() error {
		missed = true
		return fetch()
	})
	switch {
	case err != nil:
		observability.CatalogRequests.WithLabelValues(endpoint, "error").Inc()
	case missed:
		observability.CatalogRequests.WithLabelValues(endpoint, "miss").Inc()
	default:
		observability.CatalogRequests.WithLabelValues(endpoint, "hit").Inc()
	}
	return err
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	query.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.CatalogLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		err = stripURL(err)
		middleware.Logger.WarnContext(ctx, "catalog request failed", "endpoint", endpoint, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, stripURL(err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, models.NewNotFoundError(MsgGameNotFound)
	case resp.StatusCode != http.StatusOK:
		middleware.Logger.WarnContext(ctx, "catalog upstream error",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"detail", gjson.GetBytes(body, "detail").String(),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	case !gjson.ValidBytes(body):
		return nil, fmt.Errorf("%w: invalid JSON", ErrUpstream)
	}
	return body, nil
}

// stripURL drops the request URL, which carries the API key, from transport
// errors.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", strings.ToLower(uerr.Op), uerr.Err)
	}
	return err
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	if s := strings.TrimSpace(p.Search); s != "" {
		v.Set("search", s)
	}
	if o := strings.TrimSpace(p.Ordering); o != "" {
		v.Set("ordering", o)
	}
	if g := strings.TrimSpace(p.Genres); g != "" {
		v.Set("genres", g)
	}
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	v.Set("page_size", strconv.Itoa(min(size, MaxPageSize)))
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

func parsePage(body []byte) Page {
	root := gjson.ParseBytes(body)
	page := Page{
		Count:   root.Get("count").Int(),
		Next:    root.Get("next").String() != "",
		Results: []Game{},
	}
	root.Get("results").ForEach(func(_, item gjson.Result) bool {
		page.Results = append(page.Results, parseGame(item))
		return true
	})
	return page
}

func parseGame(item gjson.Result) Game {
	g := Game{
		ID:       item.Get("id").Int(),
		Name:     item.Get("name").String(),
		Rating:   item.Get("rating").Float(),
		ImageURL: item.Get("background_image").String(),
		Released: item.Get("released").String(),
		Genres:   []string{},
	}
	for _, name := range item.Get("genres.#.name").Array() {
		g.Genres = append(g.Genres, name.String())
	}
	return g
}

func parseDetail(item gjson.Result) GameDetail {
	d := GameDetail{
		Game:        parseGame(item),
		Description: item.Get("description_raw").String(),
		Website:     item.Get("website").String(),
		Metacritic:  item.Get("metacritic").Int(),
		Platforms:   []string{},
	}
	for _, name := range item.Get("platforms.#.platform.name").Array() {
		d.Platforms = append(d.Platforms, name.String())
	}
	return d
}
