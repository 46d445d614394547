package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zhouzirui/truthfinder/backend/internal/model/social"
)

const (
	// MaxQueryLength is the recent-search query limit of the v2 API.
	MaxQueryLength = 512
	minPageSize    = 10
	maxPageSize    = 100
)

var (
	ErrUnauthorized = errors.New("social search unauthorized")
	ErrRateLimited  = errors.New("social search rate limited")
)

// Searcher returns recent posts matching query, at most limit of them.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]social.Post, error)
}

// TwitterClient talks to the Twitter v2 recent search endpoint with a bearer token.
type TwitterClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewTwitterClient creates a client. httpClient may be nil.
func NewTwitterClient(baseURL, token string, httpClient *http.Client, logger *zap.Logger) (*TwitterClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("twitter bearer token is required")
	}
	if baseURL == "" {
		baseURL = "https://api.twitter.com"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TwitterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type searchResponse struct {
	Data []struct {
		ID            string         `json:"id"`
		Text          string         `json:"text"`
		AuthorID      string         `json:"author_id"`
		CreatedAt     time.Time      `json:"created_at"`
		PublicMetrics social.Metrics `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// Search implements Searcher.
func (c *TwitterClient) Search(ctx context.Context, query string, limit int) ([]social.Post, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	pageSize := limit
	if pageSize < minPageSize {
		pageSize = minPageSize
	}

	cleaned := CleanQuery(query)
	params := url.Values{}
	params.Set("query", cleaned)
	params.Set("max_results", strconv.Itoa(pageSize))
	params.Set("tweet.fields", "created_at,author_id,public_metrics")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,verified")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/tweets/search/recent?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("searching posts", zap.String("query", cleaned), zap.Int("limit", limit))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("social search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("social search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	usernames := make(map[string]string, len(payload.Includes.Users))
	for _, u := range payload.Includes.Users {
		usernames[u.ID] = u.Username
	}

	posts := make([]social.Post, 0, len(payload.Data))
	for _, item := range payload.Data {
		if len(posts) == limit {
			break
		}
		post := social.Post{
			ID:             item.ID,
			Text:           item.Text,
			AuthorID:       item.AuthorID,
			AuthorUsername: "unknown",
			CreatedAt:      item.CreatedAt,
			Metrics:        item.PublicMetrics,
		}
		if username, ok := usernames[item.AuthorID]; ok && username != "" {
			post.AuthorUsername = username
			post.URL = fmt.Sprintf("https://twitter.com/%s/status/%s", username, item.ID)
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// CleanQuery restricts the query to English originals and bounds its length.
// The keyword part is shortened first so the filters always survive.
func CleanQuery(query string) string {
	q := strings.TrimSpace(query)

	var suffix string
	if !strings.Contains(q, "lang:en") {
		suffix += " lang:en"
	}
	if !strings.Contains(q, "-is:retweet") {
		suffix += " -is:retweet"
	}

	if budget := MaxQueryLength - len(suffix); len(q) > budget {
		cut := budget
		for cut > 0 && !utf8.RuneStart(q[cut]) {
			cut--
		}
		q = strings.TrimSpace(q[:cut])
	}
	return strings.TrimSpace(q + suffix)
}
