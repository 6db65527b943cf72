package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/opiniq/sentilens/internal/clients"
	"github.com/opiniq/sentilens/internal/models"
)

const (
	SourceReddit  = "reddit"
	SourceNewsAPI = "newsapi"
)

// Source is one upstream provider of raw text about a subject.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string, limit int) ([]models.RawItem, error)
}

// contentKey identifies an item across runs for dedupe purposes.
// Derived from the content itself so the same post fetched twice maps
// to the same key regardless of provider-side IDs.
func contentKey(source, text string) string {
	hash := sha256.Sum256([]byte(source + "|" + text))
	return hex.EncodeToString(hash[:])
}

// RedditSource retrieves recent posts matching the subject via Reddit's
// site-wide search.
type RedditSource struct {
	client *clients.RedditClient
}

func NewRedditSource(client *clients.RedditClient) *RedditSource {
	return &RedditSource{client: client}
}

func (s *RedditSource) Name() string { return SourceReddit }

func (s *RedditSource) Fetch(ctx context.Context, query string, limit int) ([]models.RawItem, error) {
	posts, err := s.client.SearchPosts(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("reddit search for %q: %w", query, err)
	}

	items := make([]models.RawItem, 0, len(posts))
	for _, post := range posts {
		text := post.Title
		if strings.TrimSpace(post.Body) != "" {
			text = post.Title + "\n\n" + post.Body
		}
		items = append(items, models.RawItem{
			Text:      text,
			Source:    SourceReddit,
			Timestamp: post.CreatedAt,
			URL:       "https://www.reddit.com" + post.Permalink,
		})
	}
	return items, nil
}

// NewsSource retrieves recent news articles mentioning the subject.
type NewsSource struct {
	client *clients.NewsAPIClient
}

func NewNewsSource(client *clients.NewsAPIClient) *NewsSource {
	return &NewsSource{client: client}
}

func (s *NewsSource) Name() string { return SourceNewsAPI }

func (s *NewsSource) Fetch(ctx context.Context, query string, limit int) ([]models.RawItem, error) {
	resp, err := s.client.SearchArticles(query, limit)
	if err != nil {
		return nil, fmt.Errorf("newsapi search for %q: %w", query, err)
	}

	items := make([]models.RawItem, 0, len(resp.Articles))
	for _, article := range resp.Articles {
		text := article.Title
		if strings.TrimSpace(article.Description) != "" {
			text = article.Title + ". " + article.Description
		}

		publishedAt, err := time.Parse(time.RFC3339, article.PublishedAt)
		if err != nil {
			publishedAt = time.Now().UTC()
		}

		items = append(items, models.RawItem{
			Text:      text,
			Source:    SourceNewsAPI,
			Timestamp: publishedAt,
			URL:       article.URL,
		})
	}
	return items, nil
}
