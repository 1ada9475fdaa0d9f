package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Review span attributes
const (
	UserIDKey       = attribute.Key("user.id")
	BookingIDKey    = attribute.Key("booking.id")
	ReviewIDKey     = attribute.Key("review.id")
	RiskScoreKey    = attribute.Key("fraud.risk_score")
	FlagCountKey    = attribute.Key("fraud.flag_count")
	ContentLenKey   = attribute.Key("review.content_length")
	ReviewRatingKey = attribute.Key("review.rating")
	AnalyzerKey     = attribute.Key("fraud.analyzer")
)

// EndSpan records err on span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
