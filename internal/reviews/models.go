package reviews

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/internal/fraud"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
)

// ModerationStatus is the publication state of a review
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusFlagged  ModerationStatus = "flagged"
	StatusBlocked  ModerationStatus = "blocked"
)

// Review is a traveller's review of a completed booking
type Review struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	UserID         uuid.UUID           `json:"user_id" db:"user_id"`
	BookingID      uuid.UUID           `json:"booking_id" db:"booking_id"`
	TourID         *uuid.UUID          `json:"tour_id,omitempty" db:"tour_id"`
	Title          string              `json:"title,omitempty" db:"title"`
	Content        string              `json:"content" db:"content"`
	Rating         int                 `json:"rating" db:"rating"` // 1-5
	Status         ModerationStatus    `json:"status" db:"status"`
	FraudDetection *fraud.FraudVerdict `json:"fraud_detection,omitempty" db:"fraud_detection"`
	ModeratedBy    *uuid.UUID          `json:"moderated_by,omitempty" db:"moderated_by"`
	ModerationNote string              `json:"moderation_note,omitempty" db:"moderation_note"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
}

// RiskScore returns the stored fraud score, zero when the review was never screened
func (r *Review) RiskScore() int {
	if r.FraudDetection == nil {
		return 0
	}
	return r.FraudDetection.RiskScore
}

// SubmitReviewRequest is a traveller's review awaiting screening
type SubmitReviewRequest struct {
	UserID    uuid.UUID  `json:"user_id" validate:"required"`
	BookingID uuid.UUID  `json:"booking_id" validate:"required"`
	TourID    *uuid.UUID `json:"tour_id,omitempty"`
	Title     string     `json:"title,omitempty" validate:"max=200"`
	Content   string     `json:"content" validate:"notblank,max=5000"`
	Rating    int        `json:"rating" validate:"min=1,max=5"`
}

func (r SubmitReviewRequest) submission() fraud.ReviewSubmission {
	return fraud.ReviewSubmission{
		Content:   r.Content,
		Title:     r.Title,
		Rating:    r.Rating,
		UserID:    r.UserID,
		BookingID: r.BookingID,
	}
}

// ModerateRequest is a moderator's manual decision
type ModerateRequest struct {
	Status ModerationStatus `json:"status" validate:"required,moderation_status"`
	Note   string           `json:"note,omitempty" validate:"max=1000"`
}

func requestFromEvent(data eventbus.ReviewSubmittedData) SubmitReviewRequest {
	req := SubmitReviewRequest{
		UserID:    data.UserID,
		BookingID: data.BookingID,
		Title:     data.Title,
		Content:   data.Content,
		Rating:    data.Rating,
	}
	if data.TourID != uuid.Nil {
		tourID := data.TourID
		req.TourID = &tourID
	}
	return req
}
