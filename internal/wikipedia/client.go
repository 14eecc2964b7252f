// Package wikipedia looks up articles through the MediaWiki action API.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"wikirag/internal/domain"
)

var _ domain.ArticleSource = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "https://en.wikipedia.org/w/api.php"
	DefaultUserAgent         = "wikirag/1.0 (https://github.com/wikirag/wikirag)"
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 5
)

// Config holds configuration for the MediaWiki client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// AutoSuggest resolves the topic through a search before loading the page.
	AutoSuggest bool

	// RequestsPerSecond throttles API calls. Zero disables throttling.
	RequestsPerSecond float64
}

// Client is a domain.ArticleSource for a MediaWiki installation.
type Client struct {
	baseURL     string
	userAgent   string
	autoSuggest bool
	client      *http.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		autoSuggest: cfg.AutoSuggest,
		client:      &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(limit, 1),
		log:         log,
	}
}

// Fetch resolves topic to a page and returns its plain-text content.
// Disambiguation pages yield a *domain.DisambiguationError.
func (c *Client) Fetch(ctx context.Context, topic string) (domain.Article, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Article{}, fmt.Errorf("empty topic: %w", domain.ErrInvalidInput)
	}

	title := topic
	if c.autoSuggest {
		resolved, err := c.suggest(ctx, topic)
		if err != nil {
			return domain.Article{}, err
		}
		title = resolved
	}

	p, err := c.page(ctx, title)
	if err != nil {
		return domain.Article{}, err
	}
	if p.Missing || p.Invalid {
		return domain.Article{}, fmt.Errorf("%q: %w", title, domain.ErrArticleNotFound)
	}
	if _, ok := p.PageProps["disambiguation"]; ok {
		options, err := c.disambiguationOptions(ctx, p.Title)
		if err != nil {
			return domain.Article{}, err
		}
		return domain.Article{}, &domain.DisambiguationError{Topic: topic, Title: p.Title, Options: options}
	}

	c.log.Debug().Str("topic", topic).Str("title", p.Title).Int("page_id", p.PageID).Int("chars", len(p.Extract)).Msg("article fetched")
	return domain.Article{
		Topic:   topic,
		Title:   p.Title,
		PageID:  p.PageID,
		URL:     p.FullURL,
		Content: p.Extract,
	}, nil
}

type searchResponse struct {
	Query struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// suggest returns the top search hit, or the spelling suggestion when
// nothing matched.
func (c *Client) suggest(ctx context.Context, topic string) (string, error) {
	var resp searchResponse
	err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {topic},
		"srlimit":  {"1"},
		"srinfo":   {"suggestion"},
		"srprop":   {""},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Query.Search) > 0 {
		return resp.Query.Search[0].Title, nil
	}
	if s := resp.Query.SearchInfo.Suggestion; s != "" {
		return s, nil
	}
	return "", fmt.Errorf("%q: %w", topic, domain.ErrArticleNotFound)
}

type page struct {
	PageID    int               `json:"pageid"`
	Title     string            `json:"title"`
	Missing   bool              `json:"missing"`
	Invalid   bool              `json:"invalid"`
	Extract   string            `json:"extract"`
	FullURL   string            `json:"fullurl"`
	PageProps map[string]string `json:"pageprops"`
}

type queryResponse struct {
	Query struct {
		Pages []page `json:"pages"`
	} `json:"query"`
}

func (c *Client) page(ctx context.Context, title string) (page, error) {
	var resp queryResponse
	err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageprops|info"},
		"explaintext": {"1"},
		"ppprop":      {"disambiguation"},
		"inprop":      {"url"},
		"redirects":   {"1"},
		"titles":      {title},
	}, &resp)
	if err != nil {
		return page{}, err
	}
	if len(resp.Query.Pages) == 0 {
		return page{}, fmt.Errorf("%q: %w", title, domain.ErrArticleNotFound)
	}
	return resp.Query.Pages[0], nil
}

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"parse"`
}

func (c *Client) disambiguationOptions(ctx context.Context, title string) ([]string, error) {
	var resp parseResponse
	err := c.get(ctx, url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"text"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return ParseOptions(strings.NewReader(resp.Parse.Text))
}

type apiError struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia %s: %w", params.Get("action"), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug().Str("action", params.Get("action")).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("mediawiki request")

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wikipedia error (status %d)", resp.StatusCode)
	}
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error != nil {
		if ae.Error.Code == "missingtitle" {
			return fmt.Errorf("%s: %w", ae.Error.Info, domain.ErrArticleNotFound)
		}
		return fmt.Errorf("wikipedia error %s: %s", ae.Error.Code, ae.Error.Info)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
