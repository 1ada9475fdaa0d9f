package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/safari-bookings/pkg/cache"
	"github.com/richxcame/safari-bookings/pkg/common"
	apperrors "github.com/richxcame/safari-bookings/pkg/errors"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/richxcame/safari-bookings/pkg/tracing"
	"github.com/richxcame/safari-bookings/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "fraud"

	defaultAnalyzerTimeout  = 2 * time.Second
	defaultUserCacheSize    = 10000
	defaultUserCacheTTL     = 5 * time.Minute
	defaultContentCacheSize = 10000
	defaultContentCacheTTL  = 24 * time.Hour
)

// Service runs the fraud analyzers and aggregates their output into a verdict
type Service struct {
	repo  RepositoryInterface
	rules *Rules
	now   Clock

	content  ContentAnalyzer
	users    UserAnalyzer
	timing   TimingAnalyzer
	behavior BehaviorAnalyzer

	fingerprints FingerprintStore
	timeout      time.Duration
	stats        *cache.Manager
	statsTTL     time.Duration
}

type options struct {
	rules        *Rules
	now          Clock
	timeout      time.Duration
	fingerprints FingerprintStore
	searcher     ReviewSearcher
	userSize     int
	userTTL      time.Duration
	stats        *cache.Manager
	statsTTL     time.Duration

	content  ContentAnalyzer
	users    UserAnalyzer
	timing   TimingAnalyzer
	behavior BehaviorAnalyzer
}

// Option configures a Service
type Option func(*options)

// WithRules replaces the default rule set
func WithRules(rules *Rules) Option {
	return func(o *options) { o.rules = rules }
}

// WithClock sets the time source used by every analyzer
func WithClock(now Clock) Option {
	return func(o *options) { o.now = now }
}

// WithAnalyzerTimeout sets the per-analyzer deadline
func WithAnalyzerTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithFingerprintStore sets where content fingerprints are remembered
func WithFingerprintStore(store FingerprintStore) Option {
	return func(o *options) { o.fingerprints = store }
}

// WithSearcher sets the similar-review search used for duplicate detection
func WithSearcher(searcher ReviewSearcher) Option {
	return func(o *options) { o.searcher = searcher }
}

// WithUserCache sizes the user profile cache
func WithUserCache(size int, ttl time.Duration) Option {
	return func(o *options) {
		o.userSize = size
		o.userTTL = ttl
	}
}

// WithStatsCache caches statistics reports in Redis
func WithStatsCache(manager *cache.Manager, ttl time.Duration) Option {
	return func(o *options) {
		o.stats = manager
		o.statsTTL = ttl
	}
}

// WithAnalyzers replaces individual analyzers; nil values keep the defaults
func WithAnalyzers(content ContentAnalyzer, users UserAnalyzer, timing TimingAnalyzer, behavior BehaviorAnalyzer) Option {
	return func(o *options) {
		o.content = content
		o.users = users
		o.timing = timing
		o.behavior = behavior
	}
}

// NewService creates a fraud detection service. Without WithSearcher the
// repository is used for similar-review search when it supports it.
func NewService(repo RepositoryInterface, opts ...Option) *Service {
	o := &options{
		now:      time.Now,
		timeout:  defaultAnalyzerTimeout,
		userSize: defaultUserCacheSize,
		userTTL:  defaultUserCacheTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rules == nil {
		o.rules = DefaultRules()
	}
	if o.timeout <= 0 {
		o.timeout = defaultAnalyzerTimeout
	}
	if o.fingerprints == nil {
		o.fingerprints = NewMemoryFingerprintStore(defaultContentCacheSize, defaultContentCacheTTL)
	}
	if o.searcher == nil {
		if searcher, ok := repo.(ReviewSearcher); ok {
			o.searcher = searcher
		}
	}

	s := &Service{
		repo:         repo,
		rules:        o.rules,
		now:          o.now,
		fingerprints: o.fingerprints,
		timeout:      o.timeout,
		stats:        o.stats,
		statsTTL:     o.statsTTL,
		content:      o.content,
		users:        o.users,
		timing:       o.timing,
		behavior:     o.behavior,
	}
	if s.content == nil {
		s.content = NewContentScorer(o.rules, o.fingerprints, o.searcher)
	}
	if s.users == nil {
		s.users = NewUserProfiler(repo, o.rules, o.userSize, o.userTTL, o.now)
	}
	if s.timing == nil {
		s.timing = NewTimingInspector(repo, o.rules, o.now)
	}
	if s.behavior == nil {
		s.behavior = NewBehaviorInspector(repo, o.rules)
	}
	return s
}

// Rules returns the active rule set
func (s *Service) Rules() *Rules {
	return s.rules
}

// AnalyzeReview scores a review submission. It never fails: if the pipeline
// breaks, the fixed medium-risk verdict is returned for manual review.
func (s *Service) AnalyzeReview(ctx context.Context, review ReviewSubmission) *FraudVerdict {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "fraud.AnalyzeReview")
	span.SetAttributes(
		tracing.UserIDKey.String(review.UserID.String()),
		tracing.BookingIDKey.String(review.BookingID.String()),
		tracing.ContentLenKey.Int(len(review.Content)),
		tracing.ReviewRatingKey.Int(review.Rating),
	)

	verdict, err := s.analyze(ctx, review)
	if err != nil {
		verdict = s.failSafe(ctx, review, err)
	}

	span.SetAttributes(
		tracing.RiskScoreKey.Int(verdict.RiskScore),
		tracing.FlagCountKey.Int(verdict.FlagCount()),
		attribute.Bool("fraud.analysis_failed", verdict.Failed()),
	)
	tracing.EndSpan(span, err)

	verdictsTotal.WithLabelValues(verdictOutcome(verdict, s.rules)).Inc()
	riskScoreHistogram.Observe(float64(verdict.RiskScore))
	analysisDuration.Observe(time.Since(start).Seconds())

	return verdict
}

func (s *Service) analyze(ctx context.Context, review ReviewSubmission) (*FraudVerdict, error) {
	var (
		content  *ContentAnalysis
		user     *UserProfileSnapshot
		timing   *TimingAnalysis
		behavior *BehavioralAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		content, err = runWithTimeout(gctx, s.timeout, "content", func(ctx context.Context) (*ContentAnalysis, error) {
			return s.content.AnalyzeContent(ctx, review.Content, review.Title)
		})
		return err
	})
	g.Go(func() (err error) {
		user, err = runWithTimeout(gctx, s.timeout, "user", func(ctx context.Context) (*UserProfileSnapshot, error) {
			return s.users.AnalyzeUser(ctx, review.UserID)
		})
		return err
	})
	g.Go(func() (err error) {
		timing, err = runWithTimeout(gctx, s.timeout, "timing", func(ctx context.Context) (*TimingAnalysis, error) {
			return s.timing.AnalyzeTimingPatterns(ctx, review.UserID, review.BookingID)
		})
		return err
	})
	g.Go(func() (err error) {
		behavior, err = runWithTimeout(gctx, s.timeout, "behavior", func(ctx context.Context) (*BehavioralAnalysis, error) {
			return s.behavior.AnalyzeBehavioralPatterns(ctx, review.UserID, review.Rating)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analyses := Analyses{
		User:     user,
		Content:  content,
		Timing:   timing,
		Behavior: behavior,
		Rating:   review.Rating,
	}
	score, factors := CalculateRiskScore(analyses, s.rules)
	flags := DetermineFlags(analyses, score, s.rules)

	verdict := &FraudVerdict{
		RiskScore:          score,
		RiskFactors:        factors,
		Flags:              flags,
		UserMetrics:        user,
		ContentAnalysis:    content,
		TimingAnalysis:     timing,
		BehavioralAnalysis: behavior,
		Recommendations:    GenerateRecommendations(score, flags, s.rules),
		AnalyzedAt:         s.now(),
	}

	logger.WithContext(ctx).Info("review fraud analysis completed",
		zap.String("user_id", review.UserID.String()),
		zap.String("booking_id", review.BookingID.String()),
		zap.Int("risk_score", score),
		zap.Int("flag_count", verdict.FlagCount()),
	)

	return verdict, nil
}

type analyzerResult[T any] struct {
	value *T
	err   error
}

// runWithTimeout runs fn under the per-analyzer deadline. A missed deadline
// is a soft failure: nil result, nil error. Panics become errors.
func runWithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(context.Context) (*T, error)) (*T, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan analyzerResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- analyzerResult[T]{err: fmt.Errorf("%s analyzer panicked: %v", name, r)}
			}
		}()
		v, err := fn(actx)
		done <- analyzerResult[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return softTimeout[T](ctx, name, timeout)
		}
		if res.err != nil {
			return nil, fmt.Errorf("%s analyzer: %w", name, res.err)
		}
		return res.value, nil
	case <-actx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return softTimeout[T](ctx, name, timeout)
	}
}

func softTimeout[T any](ctx context.Context, name string, timeout time.Duration) (*T, error) {
	analyzerTimeouts.WithLabelValues(name).Inc()
	logger.WithContext(ctx).Warn("fraud analyzer timed out, ignoring its contribution",
		zap.String("analyzer", name),
		zap.Duration("timeout", timeout),
	)
	return nil, nil
}

// failSafe builds the fixed medium-risk verdict and reports the failure
func (s *Service) failSafe(ctx context.Context, review ReviewSubmission, err error) *FraudVerdict {
	traceID := tracing.GetTraceID(ctx)
	logger.WithContext(ctx).Error("review fraud analysis failed, returning fail-safe verdict",
		zap.String("user_id", review.UserID.String()),
		zap.String("booking_id", review.BookingID.String()),
		zap.Int("content_length", len(review.Content)),
		zap.Int("rating", review.Rating),
		zap.String("trace_id", traceID),
		zap.Error(err),
	)
	apperrors.CaptureErrorWithContext(ctx, err, map[string]interface{}{
		"userId":        review.UserID.String(),
		"bookingId":     review.BookingID.String(),
		"contentLength": len(review.Content),
		"rating":        review.Rating,
		"traceId":       traceID,
	})

	return &FraudVerdict{
		RiskScore: FailSafeRiskScore,
		RiskFactors: []RiskFactor{{
			Factor:      FactorAnalysisError,
			Weight:      FailSafeRiskScore,
			Description: "Fraud analysis could not be completed",
		}},
		Flags:           map[string]bool{FlagAnalysisFailed: true},
		Recommendations: []string{FailSafeRecommendation},
		AnalyzedAt:      s.now(),
	}
}

// ForgetReview drops the content fingerprint remembered while producing
// verdict. Call it when the review was never stored, so that a retried
// submission is not scored as a copy of itself.
func (s *Service) ForgetReview(ctx context.Context, verdict *FraudVerdict) {
	if verdict == nil || verdict.ContentAnalysis == nil || verdict.ContentAnalysis.fingerprint == "" {
		return
	}
	if err := s.fingerprints.Forget(ctx, verdict.ContentAnalysis.fingerprint); err != nil {
		logger.WithContext(ctx).Warn("failed to forget content fingerprint", zap.Error(err))
		return
	}
	verdict.ContentAnalysis.fingerprint = ""
}

// BatchAnalyzeReviews analyzes reviews one after another. Invalid entries
// get an error and the batch continues.
func (s *Service) BatchAnalyzeReviews(ctx context.Context, reviews []BatchReview) []BatchResult {
	results := make([]BatchResult, 0, len(reviews))
	for _, item := range reviews {
		if err := validation.ValidateStruct(item.Review); err != nil {
			logger.WithContext(ctx).Warn("skipping invalid review in batch",
				zap.String("review_id", item.ReviewID.String()),
				zap.Error(err),
			)
			results = append(results, BatchResult{ReviewID: item.ReviewID, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{
			ReviewID: item.ReviewID,
			Analysis: s.AnalyzeReview(ctx, item.Review),
		})
	}
	return results
}

// GetFraudStatistics aggregates stored verdicts from the last timeRangeHours
func (s *Service) GetFraudStatistics(ctx context.Context, timeRangeHours int) (*FraudStatistics, error) {
	if timeRangeHours <= 0 {
		return nil, common.NewBadRequestError("time range must be a positive number of hours", nil)
	}

	load := func(ctx context.Context) (interface{}, error) {
		stats, err := s.repo.GetFraudStatistics(ctx, s.now().Add(-time.Duration(timeRangeHours)*time.Hour))
		if err != nil {
			return nil, common.NewInternalError("failed to load fraud statistics", err)
		}
		if stats == nil {
			stats = &FraudStatistics{}
		}
		stats.TimeRangeHours = timeRangeHours
		return stats, nil
	}

	if s.stats == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.(*FraudStatistics), nil
	}

	var stats FraudStatistics
	if err := s.stats.GetOrSet(ctx, cache.Keys.FraudStatistics(timeRangeHours), s.statsTTL, &stats, load); err != nil {
		return nil, err
	}
	return &stats, nil
}
