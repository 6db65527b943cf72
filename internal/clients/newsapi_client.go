package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/opiniq/sentilens/internal/models"
)

const NEWS_API_SEARCH_ENDPOINT = "https://newsapi.org/v2/everything"

var (
	newsAPIInstance *NewsAPIClient
	newsAPIOnce     sync.Once
)

type NewsAPIClient struct {
	Client *http.Client
	APIKey string
}

func GetNewsAPIClient() *NewsAPIClient {
	newsAPIOnce.Do(func() {
		newsAPIInstance = &NewsAPIClient{
			Client: &http.Client{},
			APIKey: os.Getenv("NEWS_API_KEY"),
		}
	})
	return newsAPIInstance
}

// SearchArticles queries the NewsAPI everything index for articles
// mentioning the subject, most recent first.
func (n *NewsAPIClient) SearchArticles(query string, pageSize int) (*models.NewsAPISearchResponse, error) {
	if n.APIKey == "" {
		return nil, errors.New("[NewsAPIClient] API key is missing")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", pageSize))
	endpoint := NEWS_API_SEARCH_ENDPOINT + "?" + params.Encode()

	var response *models.NewsAPISearchResponse
	var lastErr error
	backoff := INITIAL_BACKOFF

	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		slog.Info("[NewsAPIClient] Searching articles",
			slog.String("query", query), slog.Int("attempt", attempt))
		req, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Api-Key", n.APIKey)
		req.Header.Set("User-Agent", USER_AGENT)

		res, err := n.Client.Do(req)
		if err != nil {
			slog.Error("[NewsAPIClient] Request failed", slog.String("error", err.Error()))
			lastErr = err
		} else {
			switch res.StatusCode {
			case http.StatusOK:
				body, err := io.ReadAll(res.Body)
				res.Body.Close()
				if err != nil {
					slog.Error("[NewsAPIClient] Failed to read response body", slog.String("error", err.Error()))
					return nil, err
				}
				if err := json.Unmarshal(body, &response); err != nil {
					slog.Error("[NewsAPIClient] Failed to parse JSON response", slog.String("error", err.Error()))
					return nil, err
				}
				slog.Info("[NewsAPIClient] Successfully fetched articles",
					slog.Int("count", len(response.Articles)))
				return response, nil
			case http.StatusBadRequest:
				res.Body.Close()
				return nil, errors.New("[NewsAPIClient] Bad request: check query parameters")
			case http.StatusUnauthorized:
				res.Body.Close()
				return nil, errors.New("[NewsAPIClient] Invalid API Key, check credentials")
			case http.StatusForbidden:
				res.Body.Close()
				return nil, errors.New("[NewsAPIClient] API key lacks required permissions")
			case http.StatusTooManyRequests, http.StatusInternalServerError:
				slog.Warn("[NewsAPIClient] Retryable response, backing off...",
					slog.Int("status_code", res.StatusCode),
					slog.Duration("backoff", backoff), slog.Int("attempt", attempt))
				io.Copy(io.Discard, res.Body)
				res.Body.Close()
				time.Sleep(backoff)
				backoff *= 2
				if backoff > MAX_BACKOFF {
					backoff = MAX_BACKOFF
				}
				lastErr = fmt.Errorf("[NewsAPIClient] status code %d", res.StatusCode)
			default:
				res.Body.Close()
				return nil, fmt.Errorf("[NewsAPIClient] Unexpected status code %d", res.StatusCode)
			}
		}
	}

	slog.Error("[NewsAPIClient] Failed after max retries")
	if lastErr == nil {
		lastErr = errors.New("[NewsAPIClient] failed after max retries")
	}
	return nil, lastErr
}
