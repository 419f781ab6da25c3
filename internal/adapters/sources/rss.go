package sources

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"crisiswatch/internal/adapters/retry"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// RSSConfig configures an RSS/Atom search source
type RSSConfig struct {
	Name string
	// URLTemplate receives the escaped query through a single %s verb
	URLTemplate string
	UserAgent   string
	Timeout     time.Duration
	// Confidence attached to every article of this source
	Confidence float64
}

// RSSNewsSource searches a news feed endpoint
type RSSNewsSource struct {
	cfg    RSSConfig
	client *http.Client
	retry  *retry.Middleware
	log    *logger.Logger
}

var _ signal.Source = (*RSSNewsSource)(nil)

// NewRSSNewsSource creates a news source; a nil retry middleware disables retries
func NewRSSNewsSource(cfg RSSConfig, r *retry.Middleware) *RSSNewsSource {
	if cfg.Name == "" {
		cfg.Name = "rss"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = 0.7
	}
	if r == nil {
		r = retry.New(retry.Config{MaxRetries: 0, AttemptTimeout: cfg.Timeout})
	}
	return &RSSNewsSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry:  r,
		log:    logger.Get().Component("rss_source").With("source", cfg.Name),
	}
}

func (s *RSSNewsSource) Name() string      { return s.cfg.Name }
func (s *RSSNewsSource) Kind() signal.Kind { return signal.KindNews }

// Fetch runs the search and returns articles inside the query window, newest first
func (s *RSSNewsSource) Fetch(ctx context.Context, q signal.Query) ([]signal.Signal, error) {
	feedURL := fmt.Sprintf(s.cfg.URLTemplate, url.QueryEscape(SearchTerms(q)))

	feed, err := retry.DoWithResult(ctx, s.retry, func(ctx context.Context) (*gofeed.Feed, error) {
		return s.parse(ctx, feedURL)
	})
	if err != nil {
		return nil, err
	}

	articles := make([]signal.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := itemTime(item)
		if published.IsZero() || !inWindow(published, q) {
			continue
		}
		outlet := feed.Title
		if item.Author != nil && item.Author.Name != "" {
			outlet = item.Author.Name
		}
		articles = append(articles, signal.NewsArticle{
			Title:       stripTags(item.Title),
			Description: stripTags(item.Description),
			URL:         item.Link,
			PublishedAt: published.UTC(),
			Outlet:      outlet,
			Provenance:  signal.Meta{Source: s.cfg.Name, Confidence: s.cfg.Confidence},
		})
	}
	sort.SliceStable(articles, func(i, j int) bool { return articles[i].PublishedAt.After(articles[j].PublishedAt) })
	if q.Limit > 0 && len(articles) > q.Limit {
		articles = articles[:q.Limit]
	}

	s.log.Debugw("Fetched feed", "company", q.Company, "items", len(feed.Items), "kept", len(articles))

	out := make([]signal.Signal, 0, len(articles))
	for _, a := range articles {
		out = append(out, a)
	}
	return out, nil
}

func (s *RSSNewsSource) parse(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build feed request")
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "%s: %v", s.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Code: resp.StatusCode, URL: feedURL}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "parse feed from %s", s.cfg.Name)
	}
	return feed, nil
}

// SearchTerms renders a query as `"Company" (kw1 OR kw2 ...)`
func SearchTerms(q signal.Query) string {
	terms := fmt.Sprintf("%q", q.Company)
	if len(q.Keywords) > 0 {
		terms += " (" + strings.Join(q.Keywords, " OR ") + ")"
	}
	return terms
}

func itemTime(item *gofeed.Item) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return *item.PublishedParsed
	case item.UpdatedParsed != nil:
		return *item.UpdatedParsed
	default:
		return time.Time{}
	}
}

func inWindow(t time.Time, q signal.Query) bool {
	if !q.Since.IsZero() && t.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && t.After(q.Until) {
		return false
	}
	return true
}

var textPolicy = bluemonday.StrictPolicy()

// stripTags reduces feed markup to plain text
func stripTags(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(s))), " ")
}
