package fraud

import (
	"context"

	"github.com/google/uuid"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// BehaviorInspector looks at the reviewer's past ratings
type BehaviorInspector struct {
	repo  RepositoryInterface
	rules *Rules
}

// NewBehaviorInspector creates a behavioral pattern analyzer
func NewBehaviorInspector(repo RepositoryInterface, rules *Rules) *BehaviorInspector {
	return &BehaviorInspector{repo: repo, rules: rules}
}

// AnalyzeBehavioralPatterns summarises the rating history. The submitted
// rating is not part of the history.
func (b *BehaviorInspector) AnalyzeBehavioralPatterns(ctx context.Context, userID uuid.UUID, rating int) (*BehavioralAnalysis, error) {
	reviews, err := b.repo.GetReviewsByUser(ctx, userID, 0)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to load rating history",
			zap.String("user_id", userID.String()),
			zap.Int("rating", rating),
			zap.Error(err),
		)
		return &BehavioralAnalysis{AnalysisError: true}, nil
	}
	if len(reviews) == 0 {
		return &BehavioralAnalysis{IsFirstReview: true}, nil
	}

	ratings := make([]float64, len(reviews))
	total, extremes := 0.0, 0
	for i, review := range reviews {
		ratings[i] = float64(review.Rating)
		total += ratings[i]
		if review.Rating == 1 || review.Rating == 5 {
			extremes++
		}
	}

	v := variance(ratings)
	return &BehavioralAnalysis{
		RatingVariance:     round2(v),
		TendencyToExtremes: round2(float64(extremes) / float64(len(reviews))),
		AverageRating:      round2(total / float64(len(reviews))),
		ReviewCount:        len(reviews),
		HasExtremeRatings:  extremes > 0,
		RatingConsistency:  v < b.rules.Behavior.ConsistencyVariance,
	}, nil
}
