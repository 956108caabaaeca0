// Package tokens provides token estimation utilities using tiktoken.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// Counter counts tokens in a string.
type Counter interface {
	Count(text string) int
}

// Estimator counts tokens with tiktoken, or chars/4 when no encoding is loaded.
type Estimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// DefaultEncoding is cl100k_base, used by the GPT-3.5/GPT-4 chat models.
const DefaultEncoding = "cl100k_base"

// MessageOverhead is the per-message framing cost (role, separators).
const MessageOverhead = 4

var (
	globalEstimator     *Estimator
	globalEstimatorOnce sync.Once
)

// Get returns the global token estimator (singleton).
func Get() *Estimator {
	globalEstimatorOnce.Do(func() {
		var err error
		globalEstimator, err = New()
		if err != nil {
			L_warn("tokens: failed to create estimator, using fallback", "error", err)
			globalEstimator = &Estimator{}
		}
	})
	return globalEstimator
}

// New creates a new token estimator.
func New() (*Estimator, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, err
	}
	return &Estimator{encoding: enc}, nil
}

// Count returns the token count for a string.
func (e *Estimator) Count(text string) int {
	if e == nil || e.encoding == nil {
		return len(text) / 4
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.encoding.Encode(text, nil, nil))
}

// Overflow returns how many leading entries of texts must be dropped so
// the rest fits in budget, counting MessageOverhead per entry. reserved
// is charged up front (the system message). A non-positive budget
// disables trimming. The last entry is never dropped.
func Overflow(c Counter, budget, reserved int, texts []string) int {
	if budget <= 0 || len(texts) == 0 {
		return 0
	}
	total := reserved
	costs := make([]int, len(texts))
	for i, t := range texts {
		costs[i] = c.Count(t) + MessageOverhead
		total += costs[i]
	}

	drop := 0
	for total > budget && drop < len(texts)-1 {
		total -= costs[drop]
		drop++
	}
	return drop
}
