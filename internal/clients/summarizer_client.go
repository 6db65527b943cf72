package clients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/opiniq/sentilens/internal/models"
)

var (
	summarizerInstance *SummarizerClient
	summarizerOnce     sync.Once
)

// SummarizerClient talks to the self-hosted summarization service used
// by the local tier. When SUMMARIZER_ENDPOINT is not configured the
// client is nil and callers fall back to plain truncation.
type SummarizerClient struct {
	Client   *http.Client
	Endpoint string
}

func GetSummarizerClient() *SummarizerClient {
	summarizerOnce.Do(func() {
		endpoint := os.Getenv("SUMMARIZER_ENDPOINT")
		if endpoint == "" {
			slog.Warn("[SummarizerClient] SUMMARIZER_ENDPOINT not set, summarization falls back to truncation")
			return
		}

		var timeout time.Duration
		if os.Getenv("APP_ENV") == "production" {
			timeout = 10 * time.Second
		} else {
			timeout = 60 * time.Second
		}

		slog.Info("[SummarizerClient] Initializing Client",
			slog.Duration("timeout", timeout),
			slog.String("endpoint", endpoint))
		summarizerInstance = &SummarizerClient{
			Client:   &http.Client{Timeout: timeout},
			Endpoint: endpoint,
		}
	})
	return summarizerInstance
}

func (s *SummarizerClient) DoWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := INITIAL_BACKOFF

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		resp, err = s.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[SummarizerClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", errMsg(err, resp)))

		time.Sleep(backoff)
		backoff *= 2
	}

	return resp, err
}

// Summarize requests one condensed rendition of the input text.
func (s *SummarizerClient) Summarize(input models.SummaryRequest) (models.SummaryResponse, error) {
	var result models.SummaryResponse
	start := time.Now()

	err := s.postJSON(s.Endpoint, input, &result)
	if err != nil {
		slog.Error("[SummarizerClient] Summary Request Failed",
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}

	slog.Info("[SummarizerClient] Summary request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (s *SummarizerClient) postJSON(endpoint string, input interface{}, output interface{}) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := s.DoWithRetry(req)
	if err != nil {
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[SummarizerClient] Failed to unmarshal response",
			slog.String("error", err.Error()),
			getPreview(respBody))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
