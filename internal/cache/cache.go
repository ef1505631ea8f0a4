// Package cache keeps diagnosis results so repeated queries against the same
// knowledge snapshot skip inference.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/symptom-kbs-mcp-server/internal/domain"
	"github.com/symptom-kbs-mcp-server/pkg/symptom"
)

// ResultCache stores inference results by query key.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]domain.InferenceResult, bool, error)
	Set(ctx context.Context, key string, results []domain.InferenceResult) error
	Purge(ctx context.Context) error
	Close() error
}

// DiagnosisKey identifies a query: the snapshot it ran against (source and load
// time) and the reported symptoms reduced to their normalized set, so order,
// case and punctuation do not create distinct entries.
func DiagnosisKey(sourceKey string, loadTime time.Time, symptoms []string) string {
	h := sha256.New()
	h.Write([]byte(sourceKey))
	h.Write([]byte{0})
	h.Write([]byte(loadTime.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(symptom.Key(symptoms), "\x1f")))
	return "diagnosis:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Noop is a ResultCache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]domain.InferenceResult, bool, error) {
	return nil, false, nil
}

func (Noop) Set(context.Context, string, []domain.InferenceResult) error { return nil }

func (Noop) Purge(context.Context) error { return nil }

func (Noop) Close() error { return nil }
