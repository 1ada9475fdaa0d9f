package fraud

import "fmt"

// Analyses is the input of the risk aggregator. A nil analysis contributes nothing.
type Analyses struct {
	User     *UserProfileSnapshot
	Content  *ContentAnalysis
	Timing   *TimingAnalysis
	Behavior *BehavioralAnalysis
	Rating   int
}

func (a Analyses) timingUsable() bool {
	return a.Timing != nil && !a.Timing.AnalysisError
}

func (a Analyses) behaviorUsable() bool {
	return a.Behavior != nil && !a.Behavior.AnalysisError && !a.Behavior.IsFirstReview
}

// CalculateRiskScore sums the points of every triggered rule and clamps to [0,100]
func CalculateRiskScore(a Analyses, rules *Rules) (int, []RiskFactor) {
	s := rules.Scoring
	factors := make([]RiskFactor, 0)
	add := func(cond bool, factor string, points int, description string) {
		if cond {
			factors = append(factors, RiskFactor{Factor: factor, Weight: points, Description: description})
		}
	}

	if u := a.User; u != nil {
		add(u.IsNewUser, "new_user", s.NewUserPoints, "Account is less than a month old")
		add(u.AccountAgeDays < s.YoungAccountDays, "very_new_account", s.YoungAccountPoints,
			fmt.Sprintf("Account is %d days old", u.AccountAgeDays))
		add(u.VerifiedBookingsCount == 0, "no_verified_bookings", s.NoVerifiedBookingsPoints, "User has no confirmed or completed bookings")
		add(u.RecentActivitySpike, "activity_spike", s.ActivitySpikePoints,
			fmt.Sprintf("%d reviews in the last week", u.ReviewFrequencyLast7Days))
		add(u.HasExtremeAverageRating, "extreme_average_rating", s.ExtremeAveragePoints,
			fmt.Sprintf("Average rating %.2f", u.AverageRating))
	}

	if c := a.Content; c != nil {
		add(c.SpamScore >= s.SpamThreshold, "spam_content", s.SpamPoints,
			fmt.Sprintf("Spam score %.2f", c.SpamScore))
		add(c.TemplateScore > s.TemplateThreshold, "template_content", s.TemplatePoints,
			fmt.Sprintf("Template score %.2f", c.TemplateScore))
		add(c.DuplicateScore > s.DuplicateThreshold, "duplicate_content", s.DuplicatePoints,
			fmt.Sprintf("Duplicate score %.2f", c.DuplicateScore))
		add(c.QualityScore < s.LowQualityThreshold, "low_quality", s.LowQualityPoints,
			fmt.Sprintf("Quality score %.2f", c.QualityScore))
		add(c.HasPersonalInfo, "personal_info", s.PersonalInfoPoints, "Content contains contact details")
		add(c.HasExternalLinks, "external_links", s.ExternalLinksPoints, "Content contains links")
	}

	if a.timingUsable() {
		t := a.Timing
		add(t.IsRushReview, "rush_review", s.RushReviewPoints,
			fmt.Sprintf("Reviewed %.2f hours after the booking ended", t.TimeToReviewHours))
		add(t.IsOffHours, "off_hours", s.OffHoursPoints, "Submitted during off hours")
		reviewCount := 0
		if a.User != nil {
			reviewCount = a.User.ReviewCount
		}
		add(!t.HasConsistentTiming && reviewCount > s.InconsistentTimingMinReview, "inconsistent_timing",
			s.InconsistentTimingPoints, "Submission times differ from the user's usual pattern")
	}

	add(a.Rating == 1 || a.Rating == 5, "extreme_rating", s.ExtremeRatingPoints,
		fmt.Sprintf("Rating of %d stars", a.Rating))

	if a.behaviorUsable() {
		add(a.Behavior.TendencyToExtremes > s.ExtremeTendencyThreshold, "extreme_tendency", s.ExtremeTendencyPoints,
			fmt.Sprintf("%.0f%% of past ratings are 1 or 5 stars", a.Behavior.TendencyToExtremes*100))
	}

	score := 0
	for _, f := range factors {
		score += f.Weight
	}
	return clampScore(score), factors
}

// DetermineFlags derives the full flag set for a scored review
func DetermineFlags(a Analyses, riskScore int, rules *Rules) map[string]bool {
	flags := make(map[string]bool, len(FlagKeys))
	for _, key := range FlagKeys {
		flags[key] = false
	}

	if c := a.Content; c != nil {
		flags[FlagSpam] = c.SpamScore >= rules.Scoring.SpamThreshold
		flags[FlagLowQuality] = c.QualityScore < rules.Scoring.LowQualityThreshold
		flags[FlagFake] = c.DuplicateScore > rules.Flags.FakeDuplicateThreshold ||
			c.TemplateScore > rules.Flags.FakeTemplateThreshold
		flags[FlagPersonalInfo] = c.HasPersonalInfo
		flags[FlagExternalLinks] = c.HasExternalLinks
	}
	if a.timingUsable() {
		flags[FlagRushReview] = a.Timing.IsRushReview
	}
	if u := a.User; u != nil {
		flags[FlagNewUserRisk] = u.IsNewUser && u.VerifiedBookingsCount == 0
		flags[FlagVolumeSpam] = u.RecentActivitySpike
	}
	flags[FlagPotentialFraud] = riskScore > rules.Flags.PotentialFraudScore

	return flags
}

// Recommendation texts
const (
	RecommendBlock        = "Block review - high fraud risk"
	RecommendManualReview = "Manual review required"
	RecommendMonitor      = "Monitor user activity"
	RecommendSpam         = "Content flagged as spam"
	RecommendFake         = "Possible fake or duplicated review"
	RecommendNewUser      = "New account without verified bookings"
	RecommendVolume       = "Unusual review volume from this user"
)

// GenerateRecommendations returns one severity line by score band plus one line per serious flag
func GenerateRecommendations(riskScore int, flags map[string]bool, rules *Rules) []string {
	r := rules.Recommendations
	recs := make([]string, 0, 4)

	switch {
	case riskScore > r.BlockScore:
		recs = append(recs, RecommendBlock)
	case riskScore > r.ManualReviewScore:
		recs = append(recs, RecommendManualReview)
	case riskScore > r.MonitorScore:
		recs = append(recs, RecommendMonitor)
	}

	if flags[FlagSpam] {
		recs = append(recs, RecommendSpam)
	}
	if flags[FlagFake] {
		recs = append(recs, RecommendFake)
	}
	if flags[FlagNewUserRisk] {
		recs = append(recs, RecommendNewUser)
	}
	if flags[FlagVolumeSpam] {
		recs = append(recs, RecommendVolume)
	}

	return recs
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
