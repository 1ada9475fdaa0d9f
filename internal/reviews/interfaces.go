package reviews

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
)

// RepositoryInterface defines the persistence operations used by the service
type RepositoryInterface interface {
	CreateReview(ctx context.Context, review *Review) error
	// GetReviewByID returns nil, nil when the review does not exist
	GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error)
	// GetReviewByBookingAndUser returns nil, nil when the user has not reviewed the booking
	GetReviewByBookingAndUser(ctx context.Context, bookingID, userID uuid.UUID) (*Review, error)
	UpdateModerationStatus(ctx context.Context, id uuid.UUID, status ModerationStatus, moderatorID uuid.UUID, note string, at time.Time) error
}

// FraudAnalyzer screens a review before it is stored
type FraudAnalyzer interface {
	AnalyzeReview(ctx context.Context, review fraud.ReviewSubmission) *fraud.FraudVerdict
	// ForgetReview undoes what AnalyzeReview remembered about a review that was not stored
	ForgetReview(ctx context.Context, verdict *fraud.FraudVerdict)
}

// Publisher sends events to the bus
type Publisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// Subscriber registers durable event consumers
type Subscriber interface {
	Subscribe(ctx context.Context, subject, consumerName string, handler eventbus.HandlerFunc) error
}

// ReviewIndex keeps recently stored reviews for similarity search
type ReviewIndex interface {
	Add(review fraud.ReviewRecord)
}
