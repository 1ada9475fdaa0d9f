package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/safari-bookings/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecentReviewIndexRanksBySimilarity(t *testing.T) {
	index := NewRecentReviewIndex(10)
	exact := ReviewRecord{ID: uuid.New(), Content: "Sunset cruise on the Kazinga channel with hippos everywhere"}
	near := ReviewRecord{ID: uuid.New(), Content: "Sunset cruise on the Kazinga channel, hippos and elephants"}
	unrelated := ReviewRecord{ID: uuid.New(), Content: "Our hotel in Kampala had slow wifi"}
	index.Add(unrelated)
	index.Add(near)
	index.Add(exact)

	results, err := index.SearchReviewsByText(context.Background(), leadingRunes(exact.Content, 50), 5)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, exact.ID, results[0].ID)
	assert.Equal(t, near.ID, results[1].ID)

	results, err = index.SearchReviewsByText(context.Background(), exact.Content, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = index.SearchReviewsByText(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecentReviewIndexIsBounded(t *testing.T) {
	index := NewRecentReviewIndex(2)
	first := ReviewRecord{ID: uuid.New(), Content: "first review about the Rwenzori hike"}
	index.Add(first)
	index.Add(ReviewRecord{ID: uuid.New(), Content: "second review about Murchison falls"})
	index.Add(ReviewRecord{ID: uuid.New(), Content: "third review about Lake Bunyonyi canoes"})

	assert.Equal(t, 2, index.Len())

	results, err := index.SearchReviewsByText(context.Background(), first.Content, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, first.ID, r.ID)
	}
}

func TestResilientSearcherUsesPrimary(t *testing.T) {
	primary := new(mockSearcher)
	want := []ReviewRecord{{ID: uuid.New(), Content: "stored"}}
	primary.On("SearchReviewsByText", mock.Anything, "snippet", 5).Return(want, nil).Once()

	searcher := NewResilientSearcher(primary, NewRecentReviewIndex(5), nil)
	got, err := searcher.SearchReviewsByText(context.Background(), "snippet", 5)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	primary.AssertExpectations(t)
}

func TestResilientSearcherFallsBackToRecentIndex(t *testing.T) {
	content := "Boat trip to the source of the Nile at Jinja"
	index := NewRecentReviewIndex(5)
	indexed := ReviewRecord{ID: uuid.New(), Content: content}
	index.Add(indexed)

	primary := new(mockSearcher)
	primary.On("SearchReviewsByText", mock.Anything, content, 5).Return(nil, errors.New("connection refused")).Once()

	breaker := resilience.NewCircuitBreaker(resilience.Settings{
		Name:             "review-search-test",
		Timeout:          time.Minute,
		FailureThreshold: 1,
	}, nil)
	searcher := NewResilientSearcher(primary, index, breaker)

	// first call fails through the breaker and trips it
	got, err := searcher.SearchReviewsByText(context.Background(), content, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, indexed.ID, got[0].ID)

	// breaker is now open; the primary is not called again
	got, err = searcher.SearchReviewsByText(context.Background(), content, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	primary.AssertExpectations(t)
}

func TestResilientSearcherWithoutFallbackReturnsError(t *testing.T) {
	primary := new(mockSearcher)
	primary.On("SearchReviewsByText", mock.Anything, "snippet", 5).Return(nil, errors.New("boom")).Once()

	_, err := NewResilientSearcher(primary, nil, nil).SearchReviewsByText(context.Background(), "snippet", 5)
	assert.Error(t, err)
	primary.AssertExpectations(t)
}

func TestResilientSearcherRetriesTransientStoreError(t *testing.T) {
	primary := new(mockSearcher)
	want := []ReviewRecord{{ID: uuid.New(), Content: "stored"}}
	primary.On("SearchReviewsByText", mock.Anything, "snippet", 5).Return(nil, &pgconn.PgError{Code: "40001"}).Once()
	primary.On("SearchReviewsByText", mock.Anything, "snippet", 5).Return(want, nil).Once()

	got, err := NewResilientSearcher(primary, nil, nil).SearchReviewsByText(context.Background(), "snippet", 5)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	primary.AssertNumberOfCalls(t, "SearchReviewsByText", 2)
}
