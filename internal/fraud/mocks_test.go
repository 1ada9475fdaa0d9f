package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockFraudRepository struct {
	mock.Mock
}

func (m *mockFraudRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*UserRecord, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*UserRecord)
	return user, args.Error(1)
}

func (m *mockFraudRepository) GetReviewsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ReviewRecord, error) {
	args := m.Called(ctx, userID, limit)
	reviews, _ := args.Get(0).([]ReviewRecord)
	return reviews, args.Error(1)
}

func (m *mockFraudRepository) CountVerifiedBookings(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockFraudRepository) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*BookingRecord, error) {
	args := m.Called(ctx, bookingID)
	booking, _ := args.Get(0).(*BookingRecord)
	return booking, args.Error(1)
}

func (m *mockFraudRepository) GetFraudStatistics(ctx context.Context, since time.Time) (*FraudStatistics, error) {
	args := m.Called(ctx, since)
	stats, _ := args.Get(0).(*FraudStatistics)
	return stats, args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchReviewsByText(ctx context.Context, snippet string, limit int) ([]ReviewRecord, error) {
	args := m.Called(ctx, snippet, limit)
	reviews, _ := args.Get(0).([]ReviewRecord)
	return reviews, args.Error(1)
}

// failing analyzers used to drive the orchestrator's error paths

type errContentAnalyzer struct{ err error }

func (a errContentAnalyzer) AnalyzeContent(context.Context, string, string) (*ContentAnalysis, error) {
	return nil, a.err
}

type errUserAnalyzer struct{ err error }

func (a errUserAnalyzer) AnalyzeUser(context.Context, uuid.UUID) (*UserProfileSnapshot, error) {
	return nil, a.err
}

type errTimingAnalyzer struct{ err error }

func (a errTimingAnalyzer) AnalyzeTimingPatterns(context.Context, uuid.UUID, uuid.UUID) (*TimingAnalysis, error) {
	return nil, a.err
}

type errBehaviorAnalyzer struct{ err error }

func (a errBehaviorAnalyzer) AnalyzeBehavioralPatterns(context.Context, uuid.UUID, int) (*BehavioralAnalysis, error) {
	return nil, a.err
}

type slowTimingAnalyzer struct{ delay time.Duration }

func (a slowTimingAnalyzer) AnalyzeTimingPatterns(ctx context.Context, _, _ uuid.UUID) (*TimingAnalysis, error) {
	select {
	case <-time.After(a.delay):
		return &TimingAnalysis{IsRushReview: true}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type panicBehaviorAnalyzer struct{}

func (panicBehaviorAnalyzer) AnalyzeBehavioralPatterns(context.Context, uuid.UUID, int) (*BehavioralAnalysis, error) {
	panic("rating history corrupted")
}

// fixedClock returns a clock frozen at noon UTC
func fixedClock() (Clock, time.Time) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, now
}

// reviewsWithRatings builds weekly reviews posted at the same hour and weekday as now
func reviewsWithRatings(userID uuid.UUID, now time.Time, ratings ...int) []ReviewRecord {
	reviews := make([]ReviewRecord, len(ratings))
	for i, rating := range ratings {
		reviews[i] = ReviewRecord{
			ID:        uuid.New(),
			UserID:    userID,
			Content:   "an earlier review",
			Rating:    rating,
			CreatedAt: now.Add(-time.Duration(i+1) * 7 * 24 * time.Hour),
		}
	}
	return reviews
}

func timePtr(t time.Time) *time.Time {
	return &t
}
