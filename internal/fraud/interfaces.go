package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface is the storage the analyzers read from
type RepositoryInterface interface {
	// GetUserByID returns nil, nil when the user does not exist
	GetUserByID(ctx context.Context, userID uuid.UUID) (*UserRecord, error)
	// GetReviewsByUser returns the newest reviews first; limit <= 0 means all
	GetReviewsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ReviewRecord, error)
	// CountVerifiedBookings counts bookings in confirmed or completed status
	CountVerifiedBookings(ctx context.Context, userID uuid.UUID) (int, error)
	// GetBookingByID returns nil, nil when the booking does not exist
	GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*BookingRecord, error)
	GetFraudStatistics(ctx context.Context, since time.Time) (*FraudStatistics, error)
}

// ReviewSearcher finds stored reviews with text similar to a snippet
type ReviewSearcher interface {
	SearchReviewsByText(ctx context.Context, snippet string, limit int) ([]ReviewRecord, error)
}

// FingerprintStore remembers content fingerprints.
// CheckAndRemember atomically reports whether fp was already stored and stores it.
// Forget drops fp so the same content is not reported as seen again.
type FingerprintStore interface {
	CheckAndRemember(ctx context.Context, fp string) (bool, error)
	Forget(ctx context.Context, fp string) error
}

// ContentAnalyzer scores review text
type ContentAnalyzer interface {
	AnalyzeContent(ctx context.Context, content, title string) (*ContentAnalysis, error)
}

// UserAnalyzer builds reviewer profiles
type UserAnalyzer interface {
	AnalyzeUser(ctx context.Context, userID uuid.UUID) (*UserProfileSnapshot, error)
}

// TimingAnalyzer inspects submission timing
type TimingAnalyzer interface {
	AnalyzeTimingPatterns(ctx context.Context, userID, bookingID uuid.UUID) (*TimingAnalysis, error)
}

// BehaviorAnalyzer inspects rating history
type BehaviorAnalyzer interface {
	AnalyzeBehavioralPatterns(ctx context.Context, userID uuid.UUID, rating int) (*BehavioralAnalysis, error)
}

// Clock returns the current time
type Clock func() time.Time
