package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crisiswatch/internal/adapters/retry"
	"crisiswatch/internal/domain/signal"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// ForumConfig configures a Reddit-compatible search endpoint
type ForumConfig struct {
	Name      string
	SearchURL string
	UserAgent string
	Timeout   time.Duration
}

// ForumSource searches a Reddit-style JSON listing
type ForumSource struct {
	cfg    ForumConfig
	client *http.Client
	retry  *retry.Middleware
	log    *logger.Logger
}

var _ signal.Source = (*ForumSource)(nil)

// NewForumSource creates a forum source; a nil retry middleware disables retries
func NewForumSource(cfg ForumConfig, r *retry.Middleware) *ForumSource {
	if cfg.Name == "" {
		cfg.Name = "reddit"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if r == nil {
		r = retry.New(retry.Config{MaxRetries: 0, AttemptTimeout: cfg.Timeout})
	}
	return &ForumSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry:  r,
		log:    logger.Get().Component("forum_source").With("source", cfg.Name),
	}
}

func (s *ForumSource) Name() string      { return s.cfg.Name }
func (s *ForumSource) Kind() signal.Kind { return signal.KindForum }

// Reddit listing response
type listingResponse struct {
	Data struct {
		Children []struct {
			Data listingPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type listingPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

// Fetch searches posts mentioning the company inside the query window
func (s *ForumSource) Fetch(ctx context.Context, q signal.Query) ([]signal.Signal, error) {
	params := url.Values{}
	params.Set("q", SearchTerms(q))
	params.Set("sort", "new")
	params.Set("t", "year")
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	params.Set("limit", strconv.Itoa(limit))
	searchURL := s.cfg.SearchURL + "?" + params.Encode()

	listing, err := retry.DoWithResult(ctx, s.retry, func(ctx context.Context) (*listingResponse, error) {
		return s.search(ctx, searchURL)
	})
	if err != nil {
		return nil, err
	}

	out := make([]signal.Signal, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		created := time.Unix(int64(p.CreatedUTC), 0).UTC()
		if !inWindow(created, q) {
			continue
		}
		text := strings.TrimSpace(p.Title + " " + p.Selftext)
		if !strings.Contains(strings.ToLower(text), strings.ToLower(q.Company)) {
			continue
		}
		out = append(out, signal.ForumPost{
			ID:          p.ID,
			Community:   p.Subreddit,
			Score:       p.Score,
			NumComments: p.NumComments,
			CreatedAt:   created,
			Text:        text,
			Provenance:  signal.Meta{Source: s.cfg.Name, Confidence: 0.6},
		})
	}

	s.log.Debugw("Fetched forum posts", "company", q.Company, "listed", len(listing.Data.Children), "kept", len(out))
	return out, nil
}

func (s *ForumSource) search(ctx context.Context, searchURL string) (*listingResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build forum request")
	}
	// Reddit rejects requests without a descriptive agent
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "%s: %v", s.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Code: resp.StatusCode, URL: s.cfg.SearchURL}
	}

	var listing listingResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, errors.Wrap(err, "decode forum listing")
	}
	return &listing, nil
}
