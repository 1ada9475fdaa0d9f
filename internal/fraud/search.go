package fraud

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/richxcame/safari-bookings/pkg/database"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/richxcame/safari-bookings/pkg/resilience"
	"go.uber.org/zap"
)

// MinSnippetSimilarity is the lowest leading-text similarity the recent index reports
const MinSnippetSimilarity = 0.5

// RecentReviewIndex keeps the last N accepted reviews in memory and answers
// similarity searches over their leading text.
type RecentReviewIndex struct {
	mu       sync.RWMutex
	capacity int
	entries  []ReviewRecord
	next     int
}

// NewRecentReviewIndex creates an index holding at most capacity reviews
func NewRecentReviewIndex(capacity int) *RecentReviewIndex {
	if capacity <= 0 {
		capacity = 1
	}
	return &RecentReviewIndex{
		capacity: capacity,
		entries:  make([]ReviewRecord, 0, capacity),
	}
}

// Add remembers a review, replacing the oldest one when full
func (x *RecentReviewIndex) Add(review ReviewRecord) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(x.entries) < x.capacity {
		x.entries = append(x.entries, review)
		return
	}
	x.entries[x.next] = review
	x.next = (x.next + 1) % x.capacity
}

// Len returns the number of indexed reviews
func (x *RecentReviewIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// SearchReviewsByText implements ReviewSearcher, most similar first
func (x *RecentReviewIndex) SearchReviewsByText(_ context.Context, snippet string, limit int) ([]ReviewRecord, error) {
	snippet = strings.ToLower(strings.TrimSpace(snippet))
	if snippet == "" || limit <= 0 {
		return nil, nil
	}
	n := utf8.RuneCountInString(snippet)

	type scored struct {
		review ReviewRecord
		score  float64
	}

	x.mu.RLock()
	matches := make([]scored, 0)
	for _, review := range x.entries {
		lead := strings.ToLower(leadingRunes(review.Content, n))
		if sim := snippetSimilarity(snippet, lead); sim >= MinSnippetSimilarity {
			matches = append(matches, scored{review: review, score: sim})
		}
	}
	x.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]ReviewRecord, len(matches))
	for i, m := range matches {
		out[i] = m.review
	}
	return out, nil
}

func snippetSimilarity(a, b string) float64 {
	maxLen := math.Max(float64(utf8.RuneCountInString(a)), float64(utf8.RuneCountInString(b)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/maxLen
}

// ResilientSearcher guards the text-search store with a circuit breaker and
// answers from the recent index while the breaker is open or the store fails.
// Transient store errors get one quick retry before falling back.
type ResilientSearcher struct {
	primary  ReviewSearcher
	fallback ReviewSearcher
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
}

// NewResilientSearcher wraps primary. breaker and fallback may be nil.
func NewResilientSearcher(primary, fallback ReviewSearcher, breaker *resilience.CircuitBreaker) *ResilientSearcher {
	retry := database.RetryConfig()
	retry.MaxAttempts = 2
	retry.InitialBackoff = 20 * time.Millisecond
	retry.MaxBackoff = 100 * time.Millisecond

	return &ResilientSearcher{primary: primary, fallback: fallback, breaker: breaker, retry: retry}
}

// SearchReviewsByText implements ReviewSearcher
func (s *ResilientSearcher) SearchReviewsByText(ctx context.Context, snippet string, limit int) ([]ReviewRecord, error) {
	result, err := resilience.RetryWithBreaker(ctx, s.retry, s.breaker, func(ctx context.Context) (interface{}, error) {
		return s.primary.SearchReviewsByText(ctx, snippet, limit)
	})
	if err == nil {
		reviews, _ := result.([]ReviewRecord)
		return reviews, nil
	}

	if s.fallback == nil {
		return nil, err
	}

	level := logger.WithContext(ctx).Warn
	if errors.Is(err, resilience.ErrCircuitOpen) {
		level = logger.WithContext(ctx).Debug
	}
	level("review search unavailable, using recent index",
		zap.String("breaker", s.breaker.Name()),
		zap.Error(err),
	)
	return s.fallback.SearchReviewsByText(ctx, snippet, limit)
}
