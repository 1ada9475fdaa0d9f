package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// TimingInspector relates the submission time to the booking and the reviewer's habits
type TimingInspector struct {
	repo  RepositoryInterface
	rules *Rules
	now   Clock
}

// NewTimingInspector creates a timing analyzer
func NewTimingInspector(repo RepositoryInterface, rules *Rules, now Clock) *TimingInspector {
	if now == nil {
		now = time.Now
	}
	return &TimingInspector{repo: repo, rules: rules, now: now}
}

// AnalyzeTimingPatterns requires a booking with a completion date; without one
// it returns a result flagged with AnalysisError.
func (t *TimingInspector) AnalyzeTimingPatterns(ctx context.Context, userID, bookingID uuid.UUID) (*TimingAnalysis, error) {
	r := t.rules.Timing
	log := logger.WithContext(ctx).With(
		zap.String("user_id", userID.String()),
		zap.String("booking_id", bookingID.String()),
	)

	booking, err := t.repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		log.Warn("failed to load booking for timing analysis", zap.Error(err))
		return &TimingAnalysis{AnalysisError: true}, nil
	}
	completed, ok := booking.CompletionDate()
	if !ok {
		log.Debug("booking has no completion date")
		return &TimingAnalysis{AnalysisError: true}, nil
	}

	now := t.now()
	hours := now.Sub(completed).Hours()
	hour := now.Hour()

	return &TimingAnalysis{
		TimeToReviewHours:   round2(hours),
		IsRushReview:        hours < r.RushHours,
		IsDelayedReview:     hours > r.DelayedHours,
		IsOffHours:          hour < r.OffHoursBefore || hour > r.OffHoursAfter,
		HasConsistentTiming: t.hasConsistentTiming(ctx, log, userID),
	}, nil
}

// hasConsistentTiming assumes consistency when history is short or unavailable
func (t *TimingInspector) hasConsistentTiming(ctx context.Context, log *zap.Logger, userID uuid.UUID) bool {
	r := t.rules.Timing

	reviews, err := t.repo.GetReviewsByUser(ctx, userID, r.HistoryLimit)
	if err != nil {
		log.Warn("failed to load review history for timing analysis", zap.Error(err))
		return true
	}
	if len(reviews) > r.HistoryLimit {
		reviews = reviews[:r.HistoryLimit]
	}
	if len(reviews) < r.MinSamples {
		return true
	}

	hours := make([]float64, len(reviews))
	days := make([]float64, len(reviews))
	for i, review := range reviews {
		hours[i] = float64(review.CreatedAt.Hour())
		days[i] = float64(review.CreatedAt.Weekday())
	}

	return variance(hours) < r.MaxHourVariance && variance(days) < r.MaxDayVariance
}

// variance returns the population variance of values
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
