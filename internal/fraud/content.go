package fraud

import (
	"context"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// ContentScorer analyzes review text against the configured rules
type ContentScorer struct {
	rules        *Rules
	fingerprints FingerprintStore
	searcher     ReviewSearcher
}

// NewContentScorer creates a content analyzer. fingerprints and searcher may be nil.
func NewContentScorer(rules *Rules, fingerprints FingerprintStore, searcher ReviewSearcher) *ContentScorer {
	return &ContentScorer{
		rules:        rules,
		fingerprints: fingerprints,
		searcher:     searcher,
	}
}

// AnalyzeContent scores content and title. It never returns an error; an
// unexpected failure yields a result flagged with AnalysisError.
func (c *ContentScorer) AnalyzeContent(ctx context.Context, content, title string) (result *ContentAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithContext(ctx).Error("content analysis panicked",
				zap.Any("panic", r),
				zap.Int("content_length", len(content)),
			)
			result = &ContentAnalysis{
				Length:        utf8.RuneCountInString(content),
				SpamScore:     0.5,
				TemplateScore: 0.5,
				QualityScore:  0.5,
				Sentiment:     SentimentNeutral,
				AnalysisError: true,
			}
			err = nil
		}
	}()

	rc := c.rules.compiled
	lowered := strings.ToLower(content)
	duplicate, remembered := c.duplicateScore(ctx, content)

	return &ContentAnalysis{
		Length:           utf8.RuneCountInString(content),
		WordCount:        len(strings.Fields(content)),
		SpamScore:        c.spamScore(content, lowered),
		TemplateScore:    c.templateScore(content, lowered),
		DuplicateScore:   duplicate,
		QualityScore:     c.qualityScore(content, lowered, title),
		HasPersonalInfo:  rc.email.MatchString(content) || c.hasPhoneNumber(content),
		HasExternalLinks: rc.url.MatchString(content),
		Sentiment:        c.sentiment(lowered),
		fingerprint:      remembered,
	}, nil
}

func (c *ContentScorer) qualityScore(content, lowered, title string) float64 {
	q := c.rules.Quality
	score := 1.0

	if utf8.RuneCountInString(content) < q.MinLength {
		score -= q.ShortPenalty
	}
	if len(strings.Fields(content)) < q.MinWords {
		score -= q.FewWordsPenalty
	}
	if countSentences(content) < q.MinSentences {
		score -= q.FewSentencesPenalty
	}
	if countDistinctRunes(content) < q.MinDistinctChars {
		score -= q.LowVarietyPenalty
	}
	if words := strings.Fields(strings.ToLower(title)); len(words) > 0 {
		if strings.Contains(lowered, words[0]) {
			score += q.TitleOverlapBonus
		}
	}

	return clampUnit(score)
}

func (c *ContentScorer) spamScore(content, lowered string) float64 {
	s := c.rules.Spam
	score := 0.0

	for _, phrase := range c.rules.compiled.spamPhrases {
		if strings.Contains(lowered, phrase) {
			score += s.PhraseWeight
		}
	}

	if c.hasSuspiciousChars(content) {
		score += s.CharPatternWeight
	}

	counts := make(map[string]int)
	for _, w := range tokenize(lowered) {
		if utf8.RuneCountInString(w) <= s.RepeatedWordMinLength {
			continue
		}
		counts[w]++
		if counts[w] == s.RepeatedWordThreshold+1 {
			score += s.RepeatedWordWeight
			break
		}
	}

	return clampUnit(score)
}

func (c *ContentScorer) hasSuspiciousChars(content string) bool {
	for _, re := range c.rules.compiled.charPatterns {
		if re.MatchString(content) {
			return true
		}
	}
	return c.rules.Spam.MaxCharRun > 1 && longestRun(content) >= c.rules.Spam.MaxCharRun
}

// hasPhoneNumber rejects dates, prices and other digit runs the phone
// pattern alone would accept
func (c *ContentScorer) hasPhoneNumber(content string) bool {
	p := c.rules.PersonalInfo
	rc := c.rules.compiled

	for _, candidate := range rc.phone.FindAllString(content, -1) {
		if rc.date.MatchString(candidate) {
			continue
		}
		digits := 0
		for _, r := range candidate {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < p.PhoneMinDigits || digits > p.PhoneMaxDigits {
			continue
		}
		if strings.HasPrefix(candidate, "+") || strings.HasPrefix(candidate, "0") || digits == utf8.RuneCountInString(candidate) {
			return true
		}
	}
	return false
}

func (c *ContentScorer) templateScore(content, lowered string) float64 {
	t := c.rules.Template
	score := 0.0

	for _, re := range c.rules.compiled.templates {
		if re.MatchString(content) {
			score += t.PatternWeight
		}
	}
	for _, phrase := range c.rules.compiled.genericPhrases {
		if strings.Contains(lowered, phrase) {
			score += t.GenericWeight
		}
	}

	return clampUnit(score)
}

// duplicateScore fails open: any lookup error scores 0. It also returns the
// fingerprint it remembered, empty when the content was already known.
func (c *ContentScorer) duplicateScore(ctx context.Context, content string) (float64, string) {
	d := c.rules.Duplicate
	log := logger.WithContext(ctx)

	var remembered string
	if c.fingerprints != nil {
		fp := Fingerprint(content)
		seen, err := c.fingerprints.CheckAndRemember(ctx, fp)
		switch {
		case err != nil:
			cacheLookups.WithLabelValues("content_fingerprint", "error").Inc()
			log.Warn("fingerprint lookup failed", zap.Error(err))
		case seen:
			cacheLookups.WithLabelValues("content_fingerprint", "hit").Inc()
			return d.FingerprintScore, ""
		default:
			cacheLookups.WithLabelValues("content_fingerprint", "miss").Inc()
			remembered = fp
		}
	}

	if c.searcher == nil {
		return 0, remembered
	}

	candidates, err := c.searcher.SearchReviewsByText(ctx, leadingRunes(content, d.SnippetLength), d.CandidateLimit)
	if err != nil {
		log.Warn("similar review search failed", zap.Error(err))
		return 0, remembered
	}

	words := wordSet(content)
	best := 0.0
	for i, candidate := range candidates {
		if i >= d.CandidateLimit {
			break
		}
		if sim := jaccard(words, wordSet(candidate.Content)); sim > best {
			best = sim
		}
	}
	return round2(best), remembered
}

func (c *ContentScorer) sentiment(lowered string) Sentiment {
	rc := c.rules.compiled
	positive, negative := 0, 0
	for _, w := range tokenize(lowered) {
		if _, ok := rc.positive[w]; ok {
			positive++
		}
		if _, ok := rc.negative[w]; ok {
			negative++
		}
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// tokenize splits text into words, stripping non-word characters
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '\''
	})
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range tokenize(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard returns |a ∩ b| / |a ∪ b|
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func countSentences(text string) int {
	n := 0
	for _, part := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func countDistinctRunes(text string) int {
	seen := make(map[rune]struct{})
	for _, r := range strings.ToLower(text) {
		seen[r] = struct{}{}
	}
	return len(seen)
}

// longestRun returns the longest run of one repeated non-space rune
func longestRun(text string) int {
	longest, current := 0, 0
	var prev rune = -1
	for _, r := range text {
		if r == prev && !unicode.IsSpace(r) {
			current++
		} else {
			current = 1
		}
		prev = r
		if current > longest {
			longest = current
		}
	}
	return longest
}

func leadingRunes(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n])
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// clampUnit clamps to [0,1] and rounds to two decimals so that summed
// weights compare exactly against thresholds
func clampUnit(v float64) float64 {
	return round2(math.Max(0, math.Min(1, v)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
