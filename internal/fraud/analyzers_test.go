package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeUserBuildsProfile(t *testing.T) {
	ctx := context.Background()
	repo := new(mockFraudRepository)
	clock, now := fixedClock()
	userID := uuid.New()

	reviews := []ReviewRecord{
		{Rating: 5, CreatedAt: now.Add(-time.Hour)},
		{Rating: 5, CreatedAt: now.Add(-24 * time.Hour)},
		{Rating: 5, CreatedAt: now.Add(-48 * time.Hour)},
		{Rating: 5, CreatedAt: now.Add(-72 * time.Hour)},
		{Rating: 5, CreatedAt: now.Add(-96 * time.Hour)},
		{Rating: 5, CreatedAt: now.Add(-120 * time.Hour)},
		{Rating: 4, CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}

	repo.On("GetUserByID", mock.Anything, userID).Return(&UserRecord{ID: userID, CreatedAt: now.AddDate(0, 0, -10)}, nil).Once()
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return(reviews, nil).Once()
	repo.On("CountVerifiedBookings", mock.Anything, userID).Return(0, nil).Once()

	profiler := NewUserProfiler(repo, DefaultRules(), 100, time.Minute, clock)
	profile, err := profiler.AnalyzeUser(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, 10, profile.AccountAgeDays)
	assert.Equal(t, 7, profile.ReviewCount)
	assert.Equal(t, 4.86, profile.AverageRating)
	assert.Equal(t, 6, profile.ReviewFrequencyLast7Days)
	assert.True(t, profile.IsNewUser)
	assert.False(t, profile.IsVolumeReviewer)
	assert.True(t, profile.HasExtremeAverageRating)
	assert.True(t, profile.RecentActivitySpike)
	assert.False(t, profile.AnalysisError)

	// served from cache
	cached, err := profiler.AnalyzeUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, profile, cached)

	repo.AssertExpectations(t)
}

func TestAnalyzeUserWithoutReviewsHasNoExtremeAverage(t *testing.T) {
	repo := new(mockFraudRepository)
	clock, now := fixedClock()
	userID := uuid.New()

	repo.On("GetUserByID", mock.Anything, userID).Return(&UserRecord{ID: userID, CreatedAt: now.AddDate(-1, 0, 0)}, nil).Once()
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return([]ReviewRecord{}, nil).Once()
	repo.On("CountVerifiedBookings", mock.Anything, userID).Return(3, nil).Once()

	profile, err := NewUserProfiler(repo, DefaultRules(), 100, time.Minute, clock).AnalyzeUser(context.Background(), userID)
	require.NoError(t, err)

	assert.False(t, profile.IsNewUser)
	assert.False(t, profile.HasExtremeAverageRating)
	assert.Equal(t, 3, profile.VerifiedBookingsCount)
	repo.AssertExpectations(t)
}

func TestAnalyzeUserFallsBackToDefaultProfile(t *testing.T) {
	tests := []struct {
		name  string
		setup func(repo *mockFraudRepository, userID uuid.UUID)
	}{
		{
			name: "missing user",
			setup: func(repo *mockFraudRepository, userID uuid.UUID) {
				repo.On("GetUserByID", mock.Anything, userID).Return(nil, nil).Twice()
			},
		},
		{
			name: "user lookup fails",
			setup: func(repo *mockFraudRepository, userID uuid.UUID) {
				repo.On("GetUserByID", mock.Anything, userID).Return(nil, errors.New("connection reset")).Twice()
			},
		},
		{
			name: "booking count fails",
			setup: func(repo *mockFraudRepository, userID uuid.UUID) {
				repo.On("GetUserByID", mock.Anything, userID).Return(&UserRecord{ID: userID, CreatedAt: time.Now()}, nil).Twice()
				repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return([]ReviewRecord{}, nil).Twice()
				repo.On("CountVerifiedBookings", mock.Anything, userID).Return(0, errors.New("timeout")).Twice()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockFraudRepository)
			userID := uuid.New()
			tt.setup(repo, userID)

			profiler := NewUserProfiler(repo, DefaultRules(), 100, time.Minute, nil)
			for i := 0; i < 2; i++ {
				profile, err := profiler.AnalyzeUser(context.Background(), userID)
				require.NoError(t, err)
				assert.True(t, profile.IsNewUser)
				assert.True(t, profile.AnalysisError)
				assert.Zero(t, profile.ReviewCount)
				assert.Zero(t, profile.VerifiedBookingsCount)
			}

			// failures are not cached
			repo.AssertExpectations(t)
		})
	}
}

func TestAnalyzeTimingPatterns(t *testing.T) {
	clock, now := fixedClock()
	userID, bookingID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		booking    *BookingRecord
		history    []ReviewRecord
		hours      float64
		rush       bool
		delayed    bool
		consistent bool
	}{
		{
			name:       "rush review",
			booking:    &BookingRecord{ID: bookingID, EndDate: timePtr(now.Add(-30 * time.Minute))},
			hours:      0.5,
			rush:       true,
			consistent: true,
		},
		{
			name:       "falls back to check-out",
			booking:    &BookingRecord{ID: bookingID, CheckOut: timePtr(now.Add(-48 * time.Hour))},
			hours:      48,
			consistent: true,
		},
		{
			name:       "delayed review",
			booking:    &BookingRecord{ID: bookingID, EndDate: timePtr(now.Add(-800 * time.Hour))},
			hours:      800,
			delayed:    true,
			consistent: true,
		},
		{
			name:    "scattered history",
			booking: &BookingRecord{ID: bookingID, EndDate: timePtr(now.Add(-48 * time.Hour))},
			history: []ReviewRecord{
				{CreatedAt: time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)},
				{CreatedAt: time.Date(2026, 3, 5, 13, 0, 0, 0, time.UTC)},
				{CreatedAt: time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC)},
			},
			hours: 48,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockFraudRepository)
			repo.On("GetBookingByID", mock.Anything, bookingID).Return(tt.booking, nil).Once()
			repo.On("GetReviewsByUser", mock.Anything, userID, 10).Return(tt.history, nil).Once()

			result, err := NewTimingInspector(repo, DefaultRules(), clock).AnalyzeTimingPatterns(context.Background(), userID, bookingID)
			require.NoError(t, err)

			assert.False(t, result.AnalysisError)
			assert.Equal(t, tt.hours, result.TimeToReviewHours)
			assert.Equal(t, tt.rush, result.IsRushReview)
			assert.Equal(t, tt.delayed, result.IsDelayedReview)
			assert.False(t, result.IsOffHours)
			assert.Equal(t, tt.consistent, result.HasConsistentTiming)
			repo.AssertExpectations(t)
		})
	}
}

func TestAnalyzeTimingPatternsOffHours(t *testing.T) {
	night := time.Date(2026, 3, 10, 3, 30, 0, 0, time.UTC)
	userID, bookingID := uuid.New(), uuid.New()

	repo := new(mockFraudRepository)
	repo.On("GetBookingByID", mock.Anything, bookingID).Return(&BookingRecord{EndDate: timePtr(night.Add(-5 * time.Hour))}, nil).Once()
	repo.On("GetReviewsByUser", mock.Anything, userID, 10).Return(nil, errors.New("connection reset")).Once()

	result, err := NewTimingInspector(repo, DefaultRules(), func() time.Time { return night }).
		AnalyzeTimingPatterns(context.Background(), userID, bookingID)
	require.NoError(t, err)

	assert.True(t, result.IsOffHours)
	// unavailable history is treated as consistent
	assert.True(t, result.HasConsistentTiming)
	repo.AssertExpectations(t)
}

func TestAnalyzeTimingPatternsWithoutCompletionDate(t *testing.T) {
	userID, bookingID := uuid.New(), uuid.New()

	for name, setup := range map[string]func(*mockFraudRepository){
		"missing booking": func(repo *mockFraudRepository) {
			repo.On("GetBookingByID", mock.Anything, bookingID).Return(nil, nil).Once()
		},
		"no dates": func(repo *mockFraudRepository) {
			repo.On("GetBookingByID", mock.Anything, bookingID).Return(&BookingRecord{ID: bookingID, Status: "confirmed"}, nil).Once()
		},
		"lookup error": func(repo *mockFraudRepository) {
			repo.On("GetBookingByID", mock.Anything, bookingID).Return(nil, errors.New("connection refused")).Once()
		},
	} {
		t.Run(name, func(t *testing.T) {
			repo := new(mockFraudRepository)
			setup(repo)

			result, err := NewTimingInspector(repo, DefaultRules(), nil).AnalyzeTimingPatterns(context.Background(), userID, bookingID)
			require.NoError(t, err)
			assert.Equal(t, &TimingAnalysis{AnalysisError: true}, result)
			repo.AssertExpectations(t)
		})
	}
}

func TestAnalyzeBehavioralPatterns(t *testing.T) {
	_, now := fixedClock()
	userID := uuid.New()

	repo := new(mockFraudRepository)
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return(reviewsWithRatings(userID, now, 5, 5, 5, 1, 4), nil).Once()

	result, err := NewBehaviorInspector(repo, DefaultRules()).AnalyzeBehavioralPatterns(context.Background(), userID, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, result.ReviewCount)
	assert.Equal(t, 4.0, result.AverageRating)
	assert.Equal(t, 0.8, result.TendencyToExtremes)
	assert.Equal(t, 2.4, result.RatingVariance)
	assert.True(t, result.HasExtremeRatings)
	assert.False(t, result.RatingConsistency)
	assert.False(t, result.IsFirstReview)
	repo.AssertExpectations(t)
}

func TestAnalyzeBehavioralPatternsConsistentRater(t *testing.T) {
	_, now := fixedClock()
	userID := uuid.New()

	repo := new(mockFraudRepository)
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return(reviewsWithRatings(userID, now, 4, 4, 4, 3), nil).Once()

	result, err := NewBehaviorInspector(repo, DefaultRules()).AnalyzeBehavioralPatterns(context.Background(), userID, 4)
	require.NoError(t, err)

	assert.True(t, result.RatingConsistency)
	assert.False(t, result.HasExtremeRatings)
	assert.Equal(t, 0.0, result.TendencyToExtremes)
}

func TestAnalyzeBehavioralPatternsFirstReviewAndErrors(t *testing.T) {
	userID := uuid.New()

	repo := new(mockFraudRepository)
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return([]ReviewRecord{}, nil).Once()
	repo.On("GetReviewsByUser", mock.Anything, userID, 0).Return(nil, errors.New("connection reset")).Once()

	inspector := NewBehaviorInspector(repo, DefaultRules())

	first, err := inspector.AnalyzeBehavioralPatterns(context.Background(), userID, 5)
	require.NoError(t, err)
	assert.Equal(t, &BehavioralAnalysis{IsFirstReview: true}, first)

	failed, err := inspector.AnalyzeBehavioralPatterns(context.Background(), userID, 5)
	require.NoError(t, err)
	assert.True(t, failed.AnalysisError)

	repo.AssertExpectations(t)
}
