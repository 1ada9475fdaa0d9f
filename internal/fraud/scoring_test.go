package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func establishedUser() *UserProfileSnapshot {
	return &UserProfileSnapshot{
		AccountAgeDays:        400,
		ReviewCount:           20,
		AverageRating:         4.0,
		VerifiedBookingsCount: 10,
	}
}

func cleanContent() *ContentAnalysis {
	return &ContentAnalysis{QualityScore: 1.0, Sentiment: SentimentNeutral}
}

func TestCalculateRiskScoreSumsTriggeredRules(t *testing.T) {
	rules := DefaultRules()
	score, factors := CalculateRiskScore(Analyses{
		User: &UserProfileSnapshot{
			AccountAgeDays: 3,
			IsNewUser:      true,
		},
		Content: &ContentAnalysis{SpamScore: 0.7, QualityScore: 0.4},
		Rating:  5,
	}, rules)

	assert.Equal(t, 95, score)
	names := make([]string, 0, len(factors))
	for _, f := range factors {
		names = append(names, f.Factor)
	}
	assert.Equal(t, []string{"new_user", "very_new_account", "no_verified_bookings", "spam_content", "extreme_rating"}, names)
}

func TestCalculateRiskScoreIsClamped(t *testing.T) {
	rules := DefaultRules()
	score, factors := CalculateRiskScore(Analyses{
		User: &UserProfileSnapshot{
			IsNewUser:               true,
			RecentActivitySpike:     true,
			HasExtremeAverageRating: true,
		},
		Content: &ContentAnalysis{
			SpamScore:        1,
			TemplateScore:    1,
			DuplicateScore:   1,
			HasPersonalInfo:  true,
			HasExternalLinks: true,
		},
		Timing:   &TimingAnalysis{IsRushReview: true, IsOffHours: true},
		Behavior: &BehavioralAnalysis{TendencyToExtremes: 1, ReviewCount: 3},
		Rating:   1,
	}, rules)

	assert.Equal(t, 100, score)
	total := 0
	for _, f := range factors {
		total += f.Weight
	}
	assert.Greater(t, total, 100)

	negative := DefaultRules()
	negative.Scoring.ExtremeRatingPoints = -40
	score, _ = CalculateRiskScore(Analyses{User: establishedUser(), Content: cleanContent(), Rating: 5}, negative)
	assert.Equal(t, 0, score)
}

func TestCalculateRiskScoreIgnoresFailedAndMissingAnalyses(t *testing.T) {
	rules := DefaultRules()
	base := Analyses{User: establishedUser(), Content: cleanContent(), Rating: 4}

	score, _ := CalculateRiskScore(base, rules)
	require.Equal(t, 0, score)

	withTimingError := base
	withTimingError.Timing = &TimingAnalysis{AnalysisError: true, IsRushReview: true, IsOffHours: true}
	score, _ = CalculateRiskScore(withTimingError, rules)
	assert.Equal(t, 0, score)

	firstReview := base
	firstReview.Behavior = &BehavioralAnalysis{IsFirstReview: true, TendencyToExtremes: 1}
	score, _ = CalculateRiskScore(firstReview, rules)
	assert.Equal(t, 0, score)

	score, factors := CalculateRiskScore(Analyses{Rating: 3}, rules)
	assert.Equal(t, 0, score)
	assert.Empty(t, factors)
}

func TestCalculateRiskScoreTimingRules(t *testing.T) {
	rules := DefaultRules()
	base := Analyses{User: establishedUser(), Content: cleanContent(), Rating: 4}

	rush := base
	rush.Timing = &TimingAnalysis{IsRushReview: true, HasConsistentTiming: true}
	score, _ := CalculateRiskScore(rush, rules)
	assert.Equal(t, 15, score)

	inconsistent := base
	inconsistent.Timing = &TimingAnalysis{HasConsistentTiming: false}
	score, _ = CalculateRiskScore(inconsistent, rules)
	assert.Equal(t, 10, score)

	fewReviews := inconsistent
	fewReviews.User = establishedUser()
	fewReviews.User.ReviewCount = 5
	score, _ = CalculateRiskScore(fewReviews, rules)
	assert.Equal(t, 0, score)
}

func TestDetermineFlagsAlwaysReturnsFullKeySet(t *testing.T) {
	rules := DefaultRules()

	for _, a := range []Analyses{
		{},
		{User: establishedUser(), Content: cleanContent()},
		{Content: &ContentAnalysis{SpamScore: 0.9, DuplicateScore: 0.85}},
	} {
		flags := DetermineFlags(a, 0, rules)
		assert.Len(t, flags, len(FlagKeys))
		for _, key := range FlagKeys {
			_, ok := flags[key]
			assert.True(t, ok, "missing flag %s", key)
		}
		_, failed := flags[FlagAnalysisFailed]
		assert.False(t, failed)
	}
}

func TestDetermineFlagsThresholds(t *testing.T) {
	rules := DefaultRules()
	a := Analyses{
		User:    &UserProfileSnapshot{IsNewUser: true, RecentActivitySpike: true},
		Content: &ContentAnalysis{SpamScore: 0.7, QualityScore: 0.2, TemplateScore: 0.75, HasExternalLinks: true},
		Timing:  &TimingAnalysis{IsRushReview: true},
	}

	flags := DetermineFlags(a, 71, rules)
	assert.True(t, flags[FlagSpam])
	assert.True(t, flags[FlagLowQuality])
	assert.True(t, flags[FlagFake])
	assert.True(t, flags[FlagExternalLinks])
	assert.False(t, flags[FlagPersonalInfo])
	assert.True(t, flags[FlagRushReview])
	assert.True(t, flags[FlagNewUserRisk])
	assert.True(t, flags[FlagVolumeSpam])
	assert.True(t, flags[FlagPotentialFraud])

	assert.False(t, DetermineFlags(a, 70, rules)[FlagPotentialFraud])

	a.Timing.AnalysisError = true
	assert.False(t, DetermineFlags(a, 0, rules)[FlagRushReview])
}

func TestPotentialFraudFlagMatchesScore(t *testing.T) {
	rules := DefaultRules()
	for score := 0; score <= 100; score++ {
		flags := DetermineFlags(Analyses{}, score, rules)
		assert.Equal(t, score > 70, flags[FlagPotentialFraud], "score %d", score)
	}
}

func TestGenerateRecommendations(t *testing.T) {
	rules := DefaultRules()
	none := map[string]bool{}

	assert.Equal(t, []string{RecommendBlock}, GenerateRecommendations(81, none, rules))
	assert.Equal(t, []string{RecommendManualReview}, GenerateRecommendations(80, none, rules))
	assert.Equal(t, []string{RecommendManualReview}, GenerateRecommendations(61, none, rules))
	assert.Equal(t, []string{RecommendMonitor}, GenerateRecommendations(60, none, rules))
	assert.Equal(t, []string{RecommendMonitor}, GenerateRecommendations(41, none, rules))
	assert.Empty(t, GenerateRecommendations(40, none, rules))

	flags := map[string]bool{
		FlagSpam:        true,
		FlagFake:        true,
		FlagNewUserRisk: true,
		FlagVolumeSpam:  true,
		FlagRushReview:  true,
	}
	assert.Equal(t, []string{RecommendBlock, RecommendSpam, RecommendFake, RecommendNewUser, RecommendVolume},
		GenerateRecommendations(95, flags, rules))
}
