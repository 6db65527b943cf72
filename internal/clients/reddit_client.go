package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/opiniq/sentilens/internal/models"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
)

var (
	redditClientInstance *RedditClient
	redditClientOnce     sync.Once
)

type RedditClient struct {
	Config *clientcredentials.Config
	Client *http.Client
	mu     *sync.Mutex
}

// GetRedditClient returns the shared Reddit client, or nil when the
// API credentials are not configured. A nil client disables the Reddit
// retrieval source for this process.
func GetRedditClient() *RedditClient {
	redditClientOnce.Do(func() {
		clientID := os.Getenv("REDDIT_CLIENT_ID")
		clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
		if clientID == "" || clientSecret == "" {
			slog.Warn("[RedditClient] Reddit credentials not set, source disabled")
			return
		}

		oauthConf := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		redditClientInstance = &RedditClient{
			Config: oauthConf,
			Client: oauthConf.Client(context.Background()),
			mu:     &sync.Mutex{},
		}
	})

	return redditClientInstance
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
}

// SearchPosts runs a site-wide Reddit search for the subject and
// returns the parsed posts, newest first.
func (rc *RedditClient) SearchPosts(ctx context.Context, query string, limit int) ([]models.RedditPost, error) {
	return rc.searchPosts(ctx, query, limit, 0)
}

func (rc *RedditClient) searchPosts(ctx context.Context, query string, limit, attempt int) ([]models.RedditPost, error) {
	parsedUrl, err := url.Parse(REDDIT_API_URL + "/search")
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to parse URL: %w", err)
	}
	queryParams := parsedUrl.Query()
	queryParams.Add("q", query)
	queryParams.Add("sort", "new")
	queryParams.Add("limit", fmt.Sprintf("%d", limit))
	parsedUrl.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedUrl.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := rc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if attempt >= MAX_RETRIES {
			return nil, fmt.Errorf("[RedditClient] token refresh exhausted")
		}
		slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
		rc.RefreshClient()
		return rc.searchPosts(ctx, query, limit, attempt+1)
	case http.StatusTooManyRequests:
		if attempt >= MAX_RETRIES {
			return nil, fmt.Errorf("[RedditClient] Max retries reached, request failed")
		}
		backoff := INITIAL_BACKOFF << attempt
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
		slog.Warn("[RedditClient] 429 Too Many Requests - Retrying with backoff",
			slog.Int("attempt", attempt+1), slog.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		return rc.searchPosts(ctx, query, limit, attempt+1)
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return parseListing(body)
	}
	return nil, fmt.Errorf("[RedditClient] Unexpected status code %d", resp.StatusCode)
}

func parseListing(body []byte) ([]models.RedditPost, error) {
	var listing models.RedditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to parse listing: %w", err)
	}

	posts := make([]models.RedditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		posts = append(posts, models.RedditPost{
			PostID:    d.ID,
			Title:     d.Title,
			Body:      d.Selftext,
			Author:    d.Author,
			Subreddit: d.Subreddit,
			Permalink: d.Permalink,
			CreatedAt: time.Unix(int64(d.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}
