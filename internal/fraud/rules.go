package fraud

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rules holds every tunable phrase list, pattern, threshold and point value.
// DefaultRules is the starting configuration; LoadRules overlays a YAML file on it.
type Rules struct {
	Quality         QualityRules        `yaml:"quality"`
	Spam            SpamRules           `yaml:"spam"`
	Template        TemplateRules       `yaml:"template"`
	Duplicate       DuplicateRules      `yaml:"duplicate"`
	PersonalInfo    PersonalInfoRules   `yaml:"personal_info"`
	Sentiment       SentimentRules      `yaml:"sentiment"`
	User            UserRules           `yaml:"user"`
	Timing          TimingRules         `yaml:"timing"`
	Behavior        BehaviorRules       `yaml:"behavior"`
	Scoring         ScoringRules        `yaml:"scoring"`
	Flags           FlagRules           `yaml:"flags"`
	Recommendations RecommendationRules `yaml:"recommendations"`

	compiled *compiledRules
}

type QualityRules struct {
	MinLength           int     `yaml:"min_length"`
	MinWords            int     `yaml:"min_words"`
	MinSentences        int     `yaml:"min_sentences"`
	MinDistinctChars    int     `yaml:"min_distinct_chars"`
	ShortPenalty        float64 `yaml:"short_penalty"`
	FewWordsPenalty     float64 `yaml:"few_words_penalty"`
	FewSentencesPenalty float64 `yaml:"few_sentences_penalty"`
	LowVarietyPenalty   float64 `yaml:"low_variety_penalty"`
	TitleOverlapBonus   float64 `yaml:"title_overlap_bonus"`
}

type SpamRules struct {
	Phrases               []string `yaml:"phrases"`
	PhraseWeight          float64  `yaml:"phrase_weight"`
	CharPatterns          []string `yaml:"char_patterns"`
	MaxCharRun            int      `yaml:"max_char_run"`
	CharPatternWeight     float64  `yaml:"char_pattern_weight"`
	RepeatedWordMinLength int      `yaml:"repeated_word_min_length"`
	RepeatedWordThreshold int      `yaml:"repeated_word_threshold"`
	RepeatedWordWeight    float64  `yaml:"repeated_word_weight"`
}

type TemplateRules struct {
	Patterns       []string `yaml:"patterns"`
	PatternWeight  float64  `yaml:"pattern_weight"`
	GenericPhrases []string `yaml:"generic_phrases"`
	GenericWeight  float64  `yaml:"generic_weight"`
}

type DuplicateRules struct {
	FingerprintScore float64 `yaml:"fingerprint_score"`
	SnippetLength    int     `yaml:"snippet_length"`
	CandidateLimit   int     `yaml:"candidate_limit"`
}

type PersonalInfoRules struct {
	EmailPattern string `yaml:"email_pattern"`
	// PhonePattern finds candidates; a candidate counts as a phone number only
	// when it has PhoneMinDigits..PhoneMaxDigits digits, is not a date and
	// either starts with + or 0 or is written without separators.
	PhonePattern   string `yaml:"phone_pattern"`
	PhoneMinDigits int    `yaml:"phone_min_digits"`
	PhoneMaxDigits int    `yaml:"phone_max_digits"`
	DatePattern    string `yaml:"date_pattern"`
	URLPattern     string `yaml:"url_pattern"`
}

type SentimentRules struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

type UserRules struct {
	NewUserDays        int     `yaml:"new_user_days"`
	VolumeReviewCount  int     `yaml:"volume_review_count"`
	ExtremeAverageLow  float64 `yaml:"extreme_average_low"`
	ExtremeAverageHigh float64 `yaml:"extreme_average_high"`
	SpikeWindowDays    int     `yaml:"spike_window_days"`
	SpikeReviewCount   int     `yaml:"spike_review_count"`
}

type TimingRules struct {
	RushHours       float64 `yaml:"rush_hours"`
	DelayedHours    float64 `yaml:"delayed_hours"`
	OffHoursBefore  int     `yaml:"off_hours_before"`
	OffHoursAfter   int     `yaml:"off_hours_after"`
	HistoryLimit    int     `yaml:"history_limit"`
	MinSamples      int     `yaml:"min_samples"`
	MaxHourVariance float64 `yaml:"max_hour_variance"`
	MaxDayVariance  float64 `yaml:"max_day_variance"`
}

type BehaviorRules struct {
	ConsistencyVariance float64 `yaml:"consistency_variance"`
}

// ScoringRules pairs each risk condition with its threshold and points
type ScoringRules struct {
	NewUserPoints            int `yaml:"new_user_points"`
	YoungAccountDays         int `yaml:"young_account_days"`
	YoungAccountPoints       int `yaml:"young_account_points"`
	NoVerifiedBookingsPoints int `yaml:"no_verified_bookings_points"`
	ActivitySpikePoints      int `yaml:"activity_spike_points"`
	ExtremeAveragePoints     int `yaml:"extreme_average_points"`

	SpamThreshold       float64 `yaml:"spam_threshold"`
	SpamPoints          int     `yaml:"spam_points"`
	TemplateThreshold   float64 `yaml:"template_threshold"`
	TemplatePoints      int     `yaml:"template_points"`
	DuplicateThreshold  float64 `yaml:"duplicate_threshold"`
	DuplicatePoints     int     `yaml:"duplicate_points"`
	LowQualityThreshold float64 `yaml:"low_quality_threshold"`
	LowQualityPoints    int     `yaml:"low_quality_points"`
	PersonalInfoPoints  int     `yaml:"personal_info_points"`
	ExternalLinksPoints int     `yaml:"external_links_points"`

	RushReviewPoints            int `yaml:"rush_review_points"`
	OffHoursPoints              int `yaml:"off_hours_points"`
	InconsistentTimingMinReview int `yaml:"inconsistent_timing_min_reviews"`
	InconsistentTimingPoints    int `yaml:"inconsistent_timing_points"`

	ExtremeRatingPoints      int     `yaml:"extreme_rating_points"`
	ExtremeTendencyThreshold float64 `yaml:"extreme_tendency_threshold"`
	ExtremeTendencyPoints    int     `yaml:"extreme_tendency_points"`
}

type FlagRules struct {
	FakeDuplicateThreshold float64 `yaml:"fake_duplicate_threshold"`
	FakeTemplateThreshold  float64 `yaml:"fake_template_threshold"`
	PotentialFraudScore    int     `yaml:"potential_fraud_score"`
}

type RecommendationRules struct {
	BlockScore        int `yaml:"block_score"`
	ManualReviewScore int `yaml:"manual_review_score"`
	MonitorScore      int `yaml:"monitor_score"`
}

type compiledRules struct {
	spamPhrases    []string
	charPatterns   []*regexp.Regexp
	templates      []*regexp.Regexp
	genericPhrases []string
	email          *regexp.Regexp
	phone          *regexp.Regexp
	date           *regexp.Regexp
	url            *regexp.Regexp
	positive       map[string]struct{}
	negative       map[string]struct{}
}

// DefaultRules returns the stock rule set, compiled
func DefaultRules() *Rules {
	r := &Rules{
		Quality: QualityRules{
			MinLength:           50,
			MinWords:            10,
			MinSentences:        2,
			MinDistinctChars:    10,
			ShortPenalty:        0.3,
			FewWordsPenalty:     0.2,
			FewSentencesPenalty: 0.1,
			LowVarietyPenalty:   0.3,
			TitleOverlapBonus:   0.1,
		},
		Spam: SpamRules{
			Phrases: []string{
				"buy now", "click here", "limited time", "act now", "free money",
				"make money", "earn cash", "special promotion", "discount code",
				"visit my website", "check out my", "whatsapp me", "dm me",
				"100% guaranteed", "risk free",
			},
			PhraseWeight: 0.2,
			CharPatterns: []string{
				`[!?]{3,}`,      // excessive punctuation
				`\b[A-Z]{8,}\b`, // long all-caps runs
				`\d{12,}`,       // long digit runs
				`[$€£]{2,}`,     // currency spam
			},
			MaxCharRun:            5,
			CharPatternWeight:     0.3,
			RepeatedWordMinLength: 3,
			RepeatedWordThreshold: 5,
			RepeatedWordWeight:    0.4,
		},
		Template: TemplateRules{
			Patterns: []string{
				`(?i)\b(great|good|excellent|nice|amazing)\s+(place|tour|trip|hotel|stay|service)\b`,
				`(?i)\bhighly\s+recommend(ed)?\b`,
				`(?i)\b(would|will)\s+(definitely\s+)?(come|go)\s+back\b`,
				`(?i)\b(5|five)\s+stars?\b`,
				`(?i)\bbest\s+(experience|trip|tour)\s+ever\b`,
			},
			PatternWeight: 0.3,
			GenericPhrases: []string{
				"value for money", "worth every penny", "exceeded my expectations",
				"everything was perfect", "must visit", "one of the best",
				"can't wait to go back", "thank you so much",
			},
			GenericWeight: 0.1,
		},
		Duplicate: DuplicateRules{
			FingerprintScore: 0.9,
			SnippetLength:    50,
			CandidateLimit:   5,
		},
		PersonalInfo: PersonalInfoRules{
			EmailPattern:   `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
			PhonePattern:   `\+?\d[\d\s\-().]{7,}\d`,
			PhoneMinDigits: 9,
			PhoneMaxDigits: 15,
			DatePattern:    `\b(?:\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}[./-]\d{1,2}[./-]\d{1,2})\b`,
			URLPattern:     `(?i)(https?://|www\.)\S+`,
		},
		Sentiment: SentimentRules{
			Positive: []string{
				"good", "great", "excellent", "amazing", "wonderful", "fantastic",
				"beautiful", "friendly", "helpful", "love", "loved", "enjoyed",
				"perfect", "best", "clean", "comfortable", "recommend", "awesome",
			},
			Negative: []string{
				"bad", "terrible", "awful", "horrible", "worst", "poor", "dirty",
				"rude", "disappointing", "disappointed", "hate", "avoid", "waste",
				"scam", "broken", "unsafe", "overpriced", "late",
			},
		},
		User: UserRules{
			NewUserDays:        30,
			VolumeReviewCount:  50,
			ExtremeAverageLow:  2,
			ExtremeAverageHigh: 4.5,
			SpikeWindowDays:    7,
			SpikeReviewCount:   5,
		},
		Timing: TimingRules{
			RushHours:       1,
			DelayedHours:    720,
			OffHoursBefore:  6,
			OffHoursAfter:   23,
			HistoryLimit:    10,
			MinSamples:      3,
			MaxHourVariance: 25,
			MaxDayVariance:  4,
		},
		Behavior: BehaviorRules{
			ConsistencyVariance: 0.5,
		},
		Scoring: ScoringRules{
			NewUserPoints:            15,
			YoungAccountDays:         7,
			YoungAccountPoints:       20,
			NoVerifiedBookingsPoints: 25,
			ActivitySpikePoints:      20,
			ExtremeAveragePoints:     10,

			SpamThreshold:       0.7,
			SpamPoints:          30,
			TemplateThreshold:   0.6,
			TemplatePoints:      25,
			DuplicateThreshold:  0.7,
			DuplicatePoints:     35,
			LowQualityThreshold: 0.3,
			LowQualityPoints:    20,
			PersonalInfoPoints:  15,
			ExternalLinksPoints: 20,

			RushReviewPoints:            15,
			OffHoursPoints:              5,
			InconsistentTimingMinReview: 5,
			InconsistentTimingPoints:    10,

			ExtremeRatingPoints:      5,
			ExtremeTendencyThreshold: 0.8,
			ExtremeTendencyPoints:    15,
		},
		Flags: FlagRules{
			FakeDuplicateThreshold: 0.8,
			FakeTemplateThreshold:  0.7,
			PotentialFraudScore:    70,
		},
		Recommendations: RecommendationRules{
			BlockScore:        80,
			ManualReviewScore: 60,
			MonitorScore:      40,
		},
	}

	if err := r.Compile(); err != nil {
		panic(fmt.Sprintf("default fraud rules do not compile: %v", err))
	}
	return r
}

// LoadRules overlays the YAML file at path on DefaultRules.
// An empty path returns the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules overlays YAML data on DefaultRules
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := rules.Compile(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Compile validates the rule set and compiles its patterns
func (r *Rules) Compile() error {
	c := &compiledRules{
		positive: toSet(r.Sentiment.Positive),
		negative: toSet(r.Sentiment.Negative),
	}

	for _, p := range r.Spam.Phrases {
		c.spamPhrases = append(c.spamPhrases, lower(p))
	}
	for _, p := range r.Template.GenericPhrases {
		c.genericPhrases = append(c.genericPhrases, lower(p))
	}

	var err error
	if c.charPatterns, err = compileAll("spam.char_patterns", r.Spam.CharPatterns); err != nil {
		return err
	}
	if c.templates, err = compileAll("template.patterns", r.Template.Patterns); err != nil {
		return err
	}
	if c.email, err = compileOne("personal_info.email_pattern", r.PersonalInfo.EmailPattern); err != nil {
		return err
	}
	if c.phone, err = compileOne("personal_info.phone_pattern", r.PersonalInfo.PhonePattern); err != nil {
		return err
	}
	if c.date, err = compileOne("personal_info.date_pattern", r.PersonalInfo.DatePattern); err != nil {
		return err
	}
	if c.url, err = compileOne("personal_info.url_pattern", r.PersonalInfo.URLPattern); err != nil {
		return err
	}
	if r.PersonalInfo.PhoneMinDigits <= 0 || r.PersonalInfo.PhoneMaxDigits < r.PersonalInfo.PhoneMinDigits {
		return fmt.Errorf("personal_info.phone_min_digits must be positive and not above phone_max_digits")
	}

	if r.Duplicate.CandidateLimit <= 0 {
		return fmt.Errorf("duplicate.candidate_limit must be positive")
	}
	if r.Timing.HistoryLimit <= 0 {
		return fmt.Errorf("timing.history_limit must be positive")
	}

	r.compiled = c
	return nil
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func compileOne(field, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s must not be empty", field)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return re, nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[lower(w)] = struct{}{}
	}
	return set
}
