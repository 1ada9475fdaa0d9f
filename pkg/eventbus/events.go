package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// ReviewSubmittedData is emitted by the booking site when a traveller submits a review.
type ReviewSubmittedData struct {
	UserID      uuid.UUID `json:"user_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	TourID      uuid.UUID `json:"tour_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Rating      int       `json:"rating"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ReviewModeratedData is emitted whenever a review gets a moderation status.
type ReviewModeratedData struct {
	ReviewID    uuid.UUID  `json:"review_id"`
	UserID      uuid.UUID  `json:"user_id"`
	BookingID   uuid.UUID  `json:"booking_id"`
	Status      string     `json:"status"`
	RiskScore   int        `json:"risk_score"`
	ModeratedBy *uuid.UUID `json:"moderated_by,omitempty"`
	Automatic   bool       `json:"automatic"`
	ModeratedAt time.Time  `json:"moderated_at"`
}

// FraudDetectedData is emitted when a review verdict crosses the potential-fraud threshold.
type FraudDetectedData struct {
	ReviewID        uuid.UUID       `json:"review_id"`
	UserID          uuid.UUID       `json:"user_id"`
	BookingID       uuid.UUID       `json:"booking_id"`
	RiskScore       int             `json:"risk_score"`
	Flags           map[string]bool `json:"flags"`
	Recommendations []string        `json:"recommendations"`
	DetectedAt      time.Time       `json:"detected_at"`
}
