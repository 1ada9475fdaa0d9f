package fraud

import (
	"time"

	"github.com/google/uuid"
)

// Flag keys carried in FraudVerdict.Flags
const (
	FlagSpam           = "isSpam"
	FlagLowQuality     = "isLowQuality"
	FlagPotentialFraud = "isPotentialFraud"
	FlagFake           = "isFake"
	FlagPersonalInfo   = "hasPersonalInfo"
	FlagExternalLinks  = "hasExternalLinks"
	FlagRushReview     = "isRushReview"
	FlagNewUserRisk    = "isNewUserRisk"
	FlagVolumeSpam     = "isVolumeSpam"
	FlagAnalysisFailed = "analysisFailed"
)

// Fail-safe verdict values
const (
	FactorAnalysisError    = "analysis_error"
	FailSafeRiskScore      = 50
	FailSafeRecommendation = "Manual review required - fraud analysis failed"
)

// FlagKeys lists every flag a successful verdict carries, in a stable order
var FlagKeys = []string{
	FlagSpam,
	FlagLowQuality,
	FlagPotentialFraud,
	FlagFake,
	FlagPersonalInfo,
	FlagExternalLinks,
	FlagRushReview,
	FlagNewUserRisk,
	FlagVolumeSpam,
}

// Sentiment is the lexicon-based tone of a review
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ReviewSubmission is the input to a fraud analysis
type ReviewSubmission struct {
	Content   string    `json:"content" validate:"notblank,max=5000"`
	Title     string    `json:"title,omitempty" validate:"max=200"`
	Rating    int       `json:"rating" validate:"min=1,max=5"`
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	BookingID uuid.UUID `json:"booking_id" validate:"required"`
}

// UserProfileSnapshot is the reviewer's rolling profile
type UserProfileSnapshot struct {
	AccountAgeDays           int     `json:"account_age_days"`
	ReviewCount              int     `json:"review_count"`
	AverageRating            float64 `json:"average_rating"`
	ReviewFrequencyLast7Days int     `json:"review_frequency_last_7_days"`
	VerifiedBookingsCount    int     `json:"verified_bookings_count"`
	IsNewUser                bool    `json:"is_new_user"`
	IsVolumeReviewer         bool    `json:"is_volume_reviewer"`
	HasExtremeAverageRating  bool    `json:"has_extreme_average_rating"`
	RecentActivitySpike      bool    `json:"recent_activity_spike"`
	AnalysisError            bool    `json:"analysis_error,omitempty"`
}

// ContentAnalysis holds the text signals of a review
type ContentAnalysis struct {
	Length           int       `json:"length"`
	WordCount        int       `json:"word_count"`
	SpamScore        float64   `json:"spam_score"`
	TemplateScore    float64   `json:"template_score"`
	DuplicateScore   float64   `json:"duplicate_score"`
	QualityScore     float64   `json:"quality_score"`
	HasPersonalInfo  bool      `json:"has_personal_info"`
	HasExternalLinks bool      `json:"has_external_links"`
	Sentiment        Sentiment `json:"sentiment"`
	AnalysisError    bool      `json:"analysis_error,omitempty"`

	// fingerprint is set when this analysis was the first to remember the content
	fingerprint string
}

// TimingAnalysis relates the submission time to the booking and the reviewer's history
type TimingAnalysis struct {
	TimeToReviewHours   float64 `json:"time_to_review_hours"`
	IsRushReview        bool    `json:"is_rush_review"`
	IsDelayedReview     bool    `json:"is_delayed_review"`
	IsOffHours          bool    `json:"is_off_hours"`
	HasConsistentTiming bool    `json:"has_consistent_timing"`
	AnalysisError       bool    `json:"analysis_error,omitempty"`
}

// BehavioralAnalysis describes the reviewer's rating history
type BehavioralAnalysis struct {
	RatingVariance     float64 `json:"rating_variance"`
	TendencyToExtremes float64 `json:"tendency_to_extremes"`
	AverageRating      float64 `json:"average_rating"`
	ReviewCount        int     `json:"review_count"`
	HasExtremeRatings  bool    `json:"has_extreme_ratings"`
	RatingConsistency  bool    `json:"rating_consistency"`
	IsFirstReview      bool    `json:"is_first_review"`
	AnalysisError      bool    `json:"analysis_error,omitempty"`
}

// RiskFactor is one triggered scoring rule
type RiskFactor struct {
	Factor      string `json:"factor"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

// FraudVerdict is the result of analyzing one review.
// An analysis pointer is nil when that analyzer timed out.
type FraudVerdict struct {
	RiskScore          int                  `json:"risk_score"`
	RiskFactors        []RiskFactor         `json:"risk_factors"`
	Flags              map[string]bool      `json:"flags"`
	UserMetrics        *UserProfileSnapshot `json:"user_metrics,omitempty"`
	ContentAnalysis    *ContentAnalysis     `json:"content_analysis,omitempty"`
	TimingAnalysis     *TimingAnalysis      `json:"timing_analysis,omitempty"`
	BehavioralAnalysis *BehavioralAnalysis  `json:"behavioral_analysis,omitempty"`
	Recommendations    []string             `json:"recommendations"`
	AnalyzedAt         time.Time            `json:"analyzed_at"`
}

// Failed reports whether the verdict is the fail-safe default
func (v *FraudVerdict) Failed() bool {
	return v != nil && v.Flags[FlagAnalysisFailed]
}

// FlagCount returns how many flags are set
func (v *FraudVerdict) FlagCount() int {
	n := 0
	for _, set := range v.Flags {
		if set {
			n++
		}
	}
	return n
}

// UserRecord is the subset of a user account the analyzers read
type UserRecord struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// ReviewRecord is a stored review as seen by the analyzers
type ReviewRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Content   string
	Rating    int
	CreatedAt time.Time
}

// BookingRecord is the subset of a booking the timing analyzer reads
type BookingRecord struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Status   string
	EndDate  *time.Time
	CheckOut *time.Time
}

// CompletionDate returns the end date, falling back to check-out
func (b *BookingRecord) CompletionDate() (time.Time, bool) {
	if b == nil {
		return time.Time{}, false
	}
	if b.EndDate != nil && !b.EndDate.IsZero() {
		return *b.EndDate, true
	}
	if b.CheckOut != nil && !b.CheckOut.IsZero() {
		return *b.CheckOut, true
	}
	return time.Time{}, false
}

// BatchReview pairs a stored review ID with its submission
type BatchReview struct {
	ReviewID uuid.UUID        `json:"review_id"`
	Review   ReviewSubmission `json:"review"`
}

// BatchResult is one entry of a batch analysis
type BatchResult struct {
	ReviewID uuid.UUID     `json:"review_id"`
	Analysis *FraudVerdict `json:"analysis,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// FraudStatistics aggregates persisted verdicts over a time window
type FraudStatistics struct {
	TimeRangeHours  int     `json:"time_range_hours"`
	TotalReviews    int     `json:"total_reviews"`
	FlaggedReviews  int     `json:"flagged_reviews"`
	HighRiskReviews int     `json:"high_risk_reviews"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
}
