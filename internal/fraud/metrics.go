package fraud

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_fraud_verdicts_total",
		Help: "Fraud verdicts by outcome",
	}, []string{"outcome"})

	riskScoreHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "safari_fraud_risk_score",
		Help:    "Distribution of review risk scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "safari_fraud_analysis_duration_seconds",
		Help:    "Time spent analyzing one review",
		Buckets: prometheus.DefBuckets,
	})

	analyzerTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_fraud_analyzer_timeouts_total",
		Help: "Analyzers that exceeded their deadline and contributed no risk",
	}, []string{"analyzer"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safari_fraud_cache_lookups_total",
		Help: "Fraud engine cache lookups",
	}, []string{"cache", "result"})
)

func verdictOutcome(v *FraudVerdict, rules *Rules) string {
	switch {
	case v.Failed():
		return "failed"
	case v.RiskScore > rules.Recommendations.BlockScore:
		return "block"
	case v.RiskScore > rules.Recommendations.ManualReviewScore:
		return "manual_review"
	case v.RiskScore > rules.Recommendations.MonitorScore:
		return "monitor"
	default:
		return "clean"
	}
}
