package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

// ValkeyClient tracks which retrieved items have already been analyzed
// in earlier runs so the pipeline does not persist the same post twice.
// The pipeline works without it: when Valkey is unreachable every item
// is treated as unseen.
type ValkeyClient struct {
	Client valkey.Client
	mu     sync.Mutex
}

const seenItemTTLSeconds = 86400

// InitValkey connects the shared client. Returns nil when the address
// is not configured or the connection fails; dedupe is disabled then.
func InitValkey() *ValkeyClient {
	valkeyOnce.Do(func() {
		valkeyAddr := os.Getenv("VALKEY_INIT_ADDRESS")
		if valkeyAddr == "" {
			slog.Warn("[ValkeyClient] VALKEY_INIT_ADDRESS not set, retrieval dedupe disabled")
			return
		}

		client, err := newValkeyConn(valkeyAddr)
		if err != nil {
			slog.Error("[ValkeyClient] Failed to connect, retrieval dedupe disabled",
				slog.String("error", err.Error()))
			return
		}

		slog.Info("[ValkeyClient] Successfully connected to valkey")
		valkeyInstance = &ValkeyClient{Client: client}
	})
	return valkeyInstance
}

func newValkeyConn(addr string) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{addr},
		Password:         os.Getenv("VALKEY_PASSWORD"),
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if os.Getenv("VALKEY_TLS") == "true" {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if c := client.Do(ctx, client.B().Ping().Build()); c.Error() != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", c.Error())
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[ValkeyClient] Recreate failed and was recovered from panic",
				slog.Any("panic", r))
		}
	}()

	vc.mu.Lock()
	defer vc.mu.Unlock()
	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	vc.Client.Close()

	client, err := newValkeyConn(os.Getenv("VALKEY_INIT_ADDRESS"))
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}

	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
	vc.Client = client
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Client.Close()
	}
}

func seenKey(source string) string {
	return "retrieval:seen:" + strings.ToLower(source)
}

// MarkSeen records an item key in the per-source seen set. The set
// expires after a day so the dedupe window tracks the default
// aggregation window.
func (vc *ValkeyClient) MarkSeen(ctx context.Context, source string, key string) error {
	sourceKey := seenKey(source)
	responses := vc.DoMultiWithRetry(ctx, func(c valkey.Client) []valkey.Completed {
		return []valkey.Completed{
			c.B().Sadd().Key(sourceKey).Member(key).Build(),
			c.B().Expire().Key(sourceKey).Seconds(seenItemTTLSeconds).Build(),
		}
	}, 3)
	for _, res := range responses {
		if err := res.Error(); err != nil {
			return err
		}
	}
	return nil
}

// IsSeen reports whether an item key was retrieved in a prior run.
// Errors count as unseen: a flaky dedupe store must not drop items.
func (vc *ValkeyClient) IsSeen(ctx context.Context, source string, key string) bool {
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Sismember().Key(seenKey(source)).Member(key).Build()
	}, 3)

	if err := res.Error(); isConnectionError(err) {
		vc.recreateClient()
	}

	ok, err := res.AsBool()
	if err != nil {
		return false
	}
	return ok
}

// DoMultiWithRetry retries a command batch. Completed commands are
// recycled by the client after use, so the builder runs once per
// attempt to produce fresh ones.
func (vc *ValkeyClient) DoMultiWithRetry(ctx context.Context, build func(valkey.Client) []valkey.Completed, retries int) []valkey.ValkeyResult {
	var results []valkey.ValkeyResult

	for i := 0; i < retries; i++ {
		results = vc.Client.DoMulti(ctx, build(vc.Client)...)
		hasErr := false
		for _, r := range results {
			if r.Error() != nil {
				hasErr = true
				slog.Warn("[ValkeyClient] Do Multi failed",
					slog.Int("attempt", i+1),
					slog.String("error", r.Error().Error()))
				if isConnectionError(r.Error()) {
					vc.recreateClient()
				}
				break
			}
		}
		if !hasErr {
			break
		}
		time.Sleep(time.Millisecond * 250)
	}

	return results
}

// DoWithRetry retries a single command, building it fresh per attempt.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Client) valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		result = vc.Client.Do(ctx, build(vc.Client))
		if result.Error() == nil {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
