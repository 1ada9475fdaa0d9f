package reviews

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/pkg/async"
	"github.com/richxcame/safari-bookings/pkg/common"
	"github.com/richxcame/safari-bookings/pkg/database"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/richxcame/safari-bookings/pkg/resilience"
	"github.com/richxcame/safari-bookings/pkg/validation"
	"go.uber.org/zap"
)

const (
	eventSource    = "reviews-service"
	publishTimeout = 10 * time.Second
)

// Service handles review submission and moderation
type Service struct {
	repo      RepositoryInterface
	analyzer  FraudAnalyzer
	publisher Publisher
	index     ReviewIndex
	retry     resilience.RetryConfig
	now       func() time.Time
}

// NewService creates a new reviews service. publisher and index may be nil.
func NewService(repo RepositoryInterface, analyzer FraudAnalyzer, publisher Publisher, index ReviewIndex) *Service {
	return &Service{
		repo:      repo,
		analyzer:  analyzer,
		publisher: publisher,
		index:     index,
		retry:     database.RetryConfig(),
		now:       time.Now,
	}
}

// SubmitReview screens a new review for fraud and stores it with its verdict
func (s *Service) SubmitReview(ctx context.Context, req SubmitReviewRequest) (*Review, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, common.NewBadRequestError("invalid review", err)
	}

	existing, err := s.repo.GetReviewByBookingAndUser(ctx, req.BookingID, req.UserID)
	if err != nil {
		return nil, common.NewInternalError("failed to check existing review", err)
	}
	if existing != nil {
		return nil, common.NewConflictError("booking has already been reviewed")
	}

	verdict := s.analyzer.AnalyzeReview(ctx, req.submission())

	now := s.now()
	review := &Review{
		ID:             uuid.New(),
		UserID:         req.UserID,
		BookingID:      req.BookingID,
		TourID:         req.TourID,
		Title:          req.Title,
		Content:        req.Content,
		Rating:         req.Rating,
		Status:         DecideStatus(verdict),
		FraudDetection: verdict,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = resilience.RetryWithName(ctx, s.retry, func(ctx context.Context) (interface{}, error) {
		return nil, s.repo.CreateReview(ctx, review)
	}, "reviews.create")
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewConflictError("booking has already been reviewed")
		}
		s.analyzer.ForgetReview(ctx, verdict)
		return nil, common.NewInternalError("failed to store review", err)
	}

	if s.index != nil {
		s.index.Add(fraud.ReviewRecord{
			ID:        review.ID,
			UserID:    review.UserID,
			Title:     review.Title,
			Content:   review.Content,
			Rating:    review.Rating,
			CreatedAt: review.CreatedAt,
		})
	}

	logger.InfoContext(ctx, "review submitted",
		zap.String("review_id", review.ID.String()),
		zap.String("user_id", review.UserID.String()),
		zap.String("status", string(review.Status)),
		zap.Int("risk_score", review.RiskScore()),
	)

	s.publishModerated(ctx, review)
	if verdict != nil && verdict.Flags[fraud.FlagPotentialFraud] {
		s.publish(ctx, eventbus.SubjectFraudDetected, eventbus.FraudDetectedData{
			ReviewID:        review.ID,
			UserID:          review.UserID,
			BookingID:       review.BookingID,
			RiskScore:       verdict.RiskScore,
			Flags:           verdict.Flags,
			Recommendations: verdict.Recommendations,
			DetectedAt:      verdict.AnalyzedAt,
		})
	}

	return review, nil
}

// GetReview retrieves a review by ID
func (s *Service) GetReview(ctx context.Context, id uuid.UUID) (*Review, error) {
	review, err := s.repo.GetReviewByID(ctx, id)
	if err != nil {
		return nil, common.NewInternalError("failed to load review", err)
	}
	if review == nil {
		return nil, common.NewNotFoundError("review not found", nil)
	}
	return review, nil
}

// Moderate applies a moderator's decision to a review
func (s *Service) Moderate(ctx context.Context, reviewID, moderatorID uuid.UUID, req ModerateRequest) (*Review, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, common.NewBadRequestError("invalid moderation request", err)
	}

	review, err := s.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(review.Status, req.Status) {
		return nil, common.NewBadRequestError("cannot move review from "+string(review.Status)+" to "+string(req.Status), nil)
	}

	now := s.now()
	if err := s.repo.UpdateModerationStatus(ctx, reviewID, req.Status, moderatorID, req.Note, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("review not found", err)
		}
		return nil, common.NewInternalError("failed to update review status", err)
	}

	review.Status = req.Status
	review.ModeratedBy = &moderatorID
	review.ModerationNote = req.Note
	review.UpdatedAt = now

	logger.InfoContext(ctx, "review moderated",
		zap.String("review_id", reviewID.String()),
		zap.String("moderator_id", moderatorID.String()),
		zap.String("status", string(req.Status)),
	)

	s.publishModerated(ctx, review)
	return review, nil
}

func (s *Service) publishModerated(ctx context.Context, review *Review) {
	s.publish(ctx, eventbus.SubjectReviewModerated, eventbus.ReviewModeratedData{
		ReviewID:    review.ID,
		UserID:      review.UserID,
		BookingID:   review.BookingID,
		Status:      string(review.Status),
		RiskScore:   review.RiskScore(),
		ModeratedBy: review.ModeratedBy,
		Automatic:   review.ModeratedBy == nil,
		ModeratedAt: review.UpdatedAt,
	})
}

// publish is fire-and-forget; the review is already stored
func (s *Service) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}

	event, err := eventbus.NewEvent(subject, eventSource, data)
	if err != nil {
		logger.WarnContext(ctx, "failed to build event", zap.String("subject", subject), zap.Error(err))
		return
	}

	async.GoWithTimeout(ctx, "publish-"+subject, publishTimeout, func(ctx context.Context) {
		if err := s.publisher.Publish(ctx, subject, event); err != nil {
			logger.WarnContext(ctx, "failed to publish event",
				zap.String("subject", subject),
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
