package fraud

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesCompile(t *testing.T) {
	rules := DefaultRules()

	require.NotNil(t, rules.compiled)
	assert.Len(t, rules.compiled.charPatterns, len(rules.Spam.CharPatterns))
	assert.Len(t, rules.compiled.templates, len(rules.Template.Patterns))
	assert.Equal(t, 15, rules.Scoring.NewUserPoints)
	assert.Equal(t, 35, rules.Scoring.DuplicatePoints)
	assert.Equal(t, 0.9, rules.Duplicate.FingerprintScore)
}

func TestParseRulesOverlaysDefaults(t *testing.T) {
	rules, err := ParseRules([]byte(`
spam:
  phrases: ["mobile money deal", "Cheap Gorilla Permits"]
  phrase_weight: 0.5
scoring:
  spam_points: 40
timing:
  rush_hours: 2
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"mobile money deal", "cheap gorilla permits"}, rules.compiled.spamPhrases)
	assert.Equal(t, 0.5, rules.Spam.PhraseWeight)
	assert.Equal(t, 40, rules.Scoring.SpamPoints)
	assert.Equal(t, 2.0, rules.Timing.RushHours)

	// untouched sections keep their defaults
	assert.Equal(t, 0.3, rules.Spam.CharPatternWeight)
	assert.Equal(t, 25, rules.Scoring.NoVerifiedBookingsPoints)
	assert.Equal(t, 720.0, rules.Timing.DelayedHours)
}

func TestParseRulesRejectsBadPatterns(t *testing.T) {
	_, err := ParseRules([]byte(`
template:
  patterns: ["(unclosed"]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template.patterns[0]")

	_, err = ParseRules([]byte(`
personal_info:
  url_pattern: ""
`))
	require.Error(t, err)

	_, err = ParseRules([]byte(`
personal_info:
  phone_min_digits: 12
  phone_max_digits: 9
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone_min_digits")

	_, err = ParseRules([]byte(`spam: [not, a, map]`))
	require.Error(t, err)
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().Scoring, rules.Scoring)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("recommendations:\n  block_score: 90\n"), 0o600))

	rules, err = LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 90, rules.Recommendations.BlockScore)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
