package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/pkg/cache"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// UserProfiler builds reviewer profiles from account, review and booking history.
// Profiles are cached per user in a bounded TTL cache.
type UserProfiler struct {
	repo  RepositoryInterface
	rules *Rules
	cache *cache.Local[uuid.UUID, UserProfileSnapshot]
	now   Clock
}

// NewUserProfiler creates a profiler caching at most cacheSize profiles for cacheTTL
func NewUserProfiler(repo RepositoryInterface, rules *Rules, cacheSize int, cacheTTL time.Duration, now Clock) *UserProfiler {
	if now == nil {
		now = time.Now
	}
	return &UserProfiler{
		repo:  repo,
		rules: rules,
		cache: cache.NewLocal[uuid.UUID, UserProfileSnapshot](cacheSize, cacheTTL),
		now:   now,
	}
}

// defaultUserProfile is returned when the user cannot be profiled
func defaultUserProfile() *UserProfileSnapshot {
	return &UserProfileSnapshot{
		IsNewUser:     true,
		AnalysisError: true,
	}
}

// AnalyzeUser returns the reviewer profile. Lookup failures and unknown users
// yield the conservative default profile instead of an error.
func (p *UserProfiler) AnalyzeUser(ctx context.Context, userID uuid.UUID) (*UserProfileSnapshot, error) {
	if cached, ok := p.cache.Get(userID); ok {
		cacheLookups.WithLabelValues("user_profile", "hit").Inc()
		return &cached, nil
	}
	cacheLookups.WithLabelValues("user_profile", "miss").Inc()

	log := logger.WithContext(ctx).With(zap.String("user_id", userID.String()))

	user, err := p.repo.GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("failed to load user for fraud profile", zap.Error(err))
		return defaultUserProfile(), nil
	}
	if user == nil {
		log.Warn("user not found for fraud profile")
		return defaultUserProfile(), nil
	}

	reviews, err := p.repo.GetReviewsByUser(ctx, userID, 0)
	if err != nil {
		log.Warn("failed to load user reviews for fraud profile", zap.Error(err))
		return defaultUserProfile(), nil
	}

	verified, err := p.repo.CountVerifiedBookings(ctx, userID)
	if err != nil {
		log.Warn("failed to count verified bookings", zap.Error(err))
		return defaultUserProfile(), nil
	}

	profile := p.buildProfile(user, reviews, verified)
	p.cache.Set(userID, *profile)
	return profile, nil
}

func (p *UserProfiler) buildProfile(user *UserRecord, reviews []ReviewRecord, verified int) *UserProfileSnapshot {
	r := p.rules.User
	now := p.now()

	ageDays := int(now.Sub(user.CreatedAt).Hours() / 24)
	if ageDays < 0 {
		ageDays = 0
	}

	weekAgo := now.AddDate(0, 0, -r.SpikeWindowDays)
	total, recent := 0, 0
	for _, review := range reviews {
		total += review.Rating
		if review.CreatedAt.After(weekAgo) {
			recent++
		}
	}

	avg := 0.0
	if len(reviews) > 0 {
		avg = round2(float64(total) / float64(len(reviews)))
	}

	return &UserProfileSnapshot{
		AccountAgeDays:           ageDays,
		ReviewCount:              len(reviews),
		AverageRating:            avg,
		ReviewFrequencyLast7Days: recent,
		VerifiedBookingsCount:    verified,
		IsNewUser:                ageDays < r.NewUserDays,
		IsVolumeReviewer:         len(reviews) > r.VolumeReviewCount,
		HasExtremeAverageRating:  len(reviews) > 0 && (avg < r.ExtremeAverageLow || avg > r.ExtremeAverageHigh),
		RecentActivitySpike:      recent > r.SpikeReviewCount,
	}
}
