package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/pkg/database"
)

const reviewColumns = `
	id, user_id, booking_id, tour_id, title, content, rating, status,
	fraud_detection, moderated_by, moderation_note, created_at, updated_at`

// Repository handles review data access
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reviews repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateReview stores a review together with its fraud verdict
func (r *Repository) CreateReview(ctx context.Context, review *Review) error {
	var verdict []byte
	if review.FraudDetection != nil {
		raw, err := json.Marshal(review.FraudDetection)
		if err != nil {
			return fmt.Errorf("marshal fraud verdict: %w", err)
		}
		verdict = raw
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO reviews (
			id, user_id, booking_id, tour_id, title, content, rating, status,
			fraud_detection, fraud_risk_score, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		review.ID, review.UserID, review.BookingID, review.TourID, review.Title,
		review.Content, review.Rating, review.Status,
		verdict, review.RiskScore(), review.CreatedAt, review.UpdatedAt,
	)
	return err
}

// GetReviewByID retrieves a review by ID
func (r *Repository) GetReviewByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	review, err := database.RetryableQueryRow(ctx, r.db, `
		SELECT`+reviewColumns+`
		FROM reviews WHERE id = $1`,
		[]interface{}{id}, scanReview,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return review, err
}

// GetReviewByBookingAndUser checks whether a user already reviewed a booking
func (r *Repository) GetReviewByBookingAndUser(ctx context.Context, bookingID, userID uuid.UUID) (*Review, error) {
	review, err := database.RetryableQueryRow(ctx, r.db, `
		SELECT`+reviewColumns+`
		FROM reviews
		WHERE booking_id = $1 AND user_id = $2`,
		[]interface{}{bookingID, userID}, scanReview,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return review, err
}

// UpdateModerationStatus records a moderator's decision
func (r *Repository) UpdateModerationStatus(ctx context.Context, id uuid.UUID, status ModerationStatus, moderatorID uuid.UUID, note string, at time.Time) error {
	tag, err := database.RetryableExec(ctx, r.db, `
		UPDATE reviews
		SET status = $2, moderated_by = $3, moderation_note = $4, updated_at = $5
		WHERE id = $1`,
		id, status, moderatorID, note, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanReview(row pgx.Row) (*Review, error) {
	review := &Review{}
	var (
		title, note *string
		verdict     []byte
	)
	err := row.Scan(
		&review.ID, &review.UserID, &review.BookingID, &review.TourID,
		&title, &review.Content, &review.Rating, &review.Status,
		&verdict, &review.ModeratedBy, &note, &review.CreatedAt, &review.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if title != nil {
		review.Title = *title
	}
	if note != nil {
		review.ModerationNote = *note
	}
	if len(verdict) > 0 {
		review.FraudDetection = &fraud.FraudVerdict{}
		if err := json.Unmarshal(verdict, review.FraudDetection); err != nil {
			return nil, fmt.Errorf("decode fraud verdict: %w", err)
		}
	}
	return review, nil
}
