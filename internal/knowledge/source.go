package knowledge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Source is where a knowledge document is read from. Key identifies the
// source in the snapshot cache.
type Source interface {
	Key() string
	Format() Format
	Read(ctx context.Context) ([]byte, error)
}

// WritableSource is a Source the document can be persisted back to. Writes
// replace the whole document.
type WritableSource interface {
	Source
	Write(ctx context.Context, data []byte) error
}

// FileSource reads and writes a local JSON or YAML document.
type FileSource struct {
	Path string
}

// NewFileSource creates a file source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) Key() string {
	if abs, err := filepath.Abs(f.Path); err == nil {
		return "file:" + abs
	}
	return "file:" + f.Path
}

func (f *FileSource) Format() Format {
	return FormatForPath(f.Path)
}

func (f *FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Path)
}

// Write overwrites the document through a temp file and rename so readers
// never observe a half-written file.
func (f *FileSource) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.Path, err)
	}
	return nil
}

// HTTPSourceConfig configures a remote, read-only knowledge document.
type HTTPSourceConfig struct {
	Timeout          time.Duration
	RateLimit        float64 // requests per second
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// HTTPSource fetches a knowledge document over HTTP. Fetches are rate limited
// and guarded by a circuit breaker so a failing upstream is not hammered.
type HTTPSource struct {
	url        string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPSource creates a remote source for rawURL.
func NewHTTPSource(rawURL string, config HTTPSourceConfig, logger *logrus.Logger) *HTTPSource {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 3
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "knowledge-source",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &HTTPSource{
		url:        rawURL,
		httpClient: &http.Client{Timeout: config.Timeout},
		rateLimit:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:    breaker,
	}
}

func (h *HTTPSource) Key() string {
	return "url:" + h.url
}

func (h *HTTPSource) Format() Format {
	if u, err := url.Parse(h.url); err == nil {
		return FormatForPath(u.Path)
	}
	return FormatJSON
}

func (h *HTTPSource) Read(ctx context.Context) ([]byte, error) {
	if err := h.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (h *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, h.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
