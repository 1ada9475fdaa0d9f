package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/richxcame/safari-bookings/pkg/logger"
	"go.uber.org/zap"
)

// TaskContext holds the values propagated from a request into a detached task
type TaskContext struct {
	CorrelationID string
	StartTime     time.Time
	TaskName      string
}

// CaptureContext captures the current context values for async propagation
func CaptureContext(ctx context.Context, taskName string) TaskContext {
	return TaskContext{
		CorrelationID: logger.CorrelationIDFromContext(ctx),
		StartTime:     time.Now(),
		TaskName:      taskName,
	}
}

// NewContext creates a fresh background context carrying the captured values.
// The caller's cancellation does not reach it.
func (tc TaskContext) NewContext() context.Context {
	ctx := context.Background()
	if tc.CorrelationID != "" {
		ctx = logger.ContextWithCorrelationID(ctx, tc.CorrelationID)
	}
	return ctx
}

// GoWithTimeout runs fn in a goroutine with correlation ID propagation and
// panic recovery. fn gets a detached context that expires after timeout.
//
//	async.GoWithTimeout(ctx, "publish-moderation", 10*time.Second, func(ctx context.Context) {
//	    bus.Publish(ctx, subject, event)
//	})
func GoWithTimeout(ctx context.Context, taskName string, timeout time.Duration, fn func(ctx context.Context)) {
	tc := CaptureContext(ctx, taskName)

	go func() {
		defer recoverWithLogging(tc)

		newCtx, cancel := context.WithTimeout(tc.NewContext(), timeout)
		defer cancel()

		fn(newCtx)

		if newCtx.Err() == context.DeadlineExceeded {
			logger.WarnContext(newCtx, "async task exceeded its deadline",
				zap.String("task", tc.TaskName),
				zap.Duration("timeout", timeout),
			)
			return
		}
		logger.DebugContext(newCtx, "async task completed",
			zap.String("task", tc.TaskName),
			zap.Duration("duration", time.Since(tc.StartTime)),
		)
	}()
}

func recoverWithLogging(tc TaskContext) {
	if r := recover(); r != nil {
		logger.ErrorContext(tc.NewContext(), "async task panicked",
			zap.String("task", tc.TaskName),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}
