package reviews

import (
	"context"
	"errors"
	"net/http"

	"github.com/richxcame/safari-bookings/pkg/common"
	"github.com/richxcame/safari-bookings/pkg/eventbus"
	"github.com/richxcame/safari-bookings/pkg/logger"
	"github.com/richxcame/safari-bookings/pkg/tracing"
	"go.uber.org/zap"
)

// ConsumerName is the durable JetStream consumer for submitted reviews
const ConsumerName = "reviews-fraud-screening"

const tracerName = "reviews"

// Submitter stores screened reviews
type Submitter interface {
	SubmitReview(ctx context.Context, req SubmitReviewRequest) (*Review, error)
}

// Consumer turns reviews.submitted events into screened reviews
type Consumer struct {
	reviews Submitter
}

// NewConsumer creates a new submitted-review consumer
func NewConsumer(reviews Submitter) *Consumer {
	return &Consumer{reviews: reviews}
}

// Register subscribes the consumer to the event bus
func (c *Consumer) Register(ctx context.Context, bus Subscriber) error {
	return bus.Subscribe(ctx, eventbus.SubjectReviewSubmitted, ConsumerName, c.HandleSubmitted)
}

// HandleSubmitted processes one reviews.submitted event.
// Returning an error makes the bus redeliver, so only transient failures do.
func (c *Consumer) HandleSubmitted(ctx context.Context, event *eventbus.Event) (err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "reviews.HandleSubmitted")
	defer func() { tracing.EndSpan(span, err) }()

	var data eventbus.ReviewSubmittedData
	if err := event.Decode(&data); err != nil {
		logger.WarnContext(ctx, "dropping malformed review event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return nil
	}

	req := requestFromEvent(data)
	span.SetAttributes(tracing.UserIDKey.String(req.UserID.String()), tracing.BookingIDKey.String(req.BookingID.String()))

	review, err := c.reviews.SubmitReview(ctx, req)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code < http.StatusInternalServerError {
			logger.WarnContext(ctx, "review rejected",
				zap.String("event_id", event.ID),
				zap.String("booking_id", req.BookingID.String()),
				zap.Int("code", appErr.Code),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	span.SetAttributes(tracing.ReviewIDKey.String(review.ID.String()))
	logger.DebugContext(ctx, "review event processed",
		zap.String("event_id", event.ID),
		zap.String("review_id", review.ID.String()),
	)
	return nil
}
