package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/richxcame/safari-bookings/pkg/common"
	"github.com/richxcame/safari-bookings/pkg/logger"
)

// SentryConfig holds configuration for Sentry integration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	SampleRate       float64
	Debug            bool
	ServerName       string
	AttachStacktrace bool
}

// DefaultSentryConfig reads Sentry settings from the environment
func DefaultSentryConfig(serviceName string) *SentryConfig {
	return &SentryConfig{
		DSN:              os.Getenv("SENTRY_DSN"),
		Environment:      getEnvironment(),
		Release:          os.Getenv("SENTRY_RELEASE"),
		SampleRate:       getSampleRate(),
		Debug:            os.Getenv("SENTRY_DEBUG") == "true",
		ServerName:       serviceName,
		AttachStacktrace: true,
	}
}

// InitSentry initializes the Sentry SDK with the given configuration
func InitSentry(config *SentryConfig) error {
	if config.DSN == "" {
		return fmt.Errorf("sentry DSN is not configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              config.DSN,
		Environment:      config.Environment,
		Release:          config.Release,
		SampleRate:       config.SampleRate,
		Debug:            config.Debug,
		ServerName:       config.ServerName,
		AttachStacktrace: config.AttachStacktrace,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if event.Level == sentry.LevelInfo || event.Level == sentry.LevelDebug {
				return nil
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	return nil
}

// Flush flushes the Sentry buffer
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// CaptureErrorWithContext reports err with the correlation ID and extras attached.
// Business errors are skipped.
func CaptureErrorWithContext(ctx context.Context, err error, extras map[string]interface{}) *sentry.EventID {
	if err == nil || IsBusinessError(err) {
		return nil
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}
	})

	return hub.CaptureException(err)
}

// IsBusinessError checks if an error is an expected outcome that shouldn't be reported
func IsBusinessError(err error) bool {
	if err == nil {
		return false
	}

	var appErr *common.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code >= http.StatusBadRequest && appErr.Code < http.StatusInternalServerError
	}

	errMsg := strings.ToLower(err.Error())
	for _, businessErr := range []string{"validation failed", "not found", "conflict"} {
		if strings.Contains(errMsg, businessErr) {
			return true
		}
	}
	return false
}

func getEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("SENTRY_ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return env
}

func getSampleRate() float64 {
	rate, err := strconv.ParseFloat(os.Getenv("SENTRY_SAMPLE_RATE"), 64)
	if err != nil {
		return 1.0
	}
	return rate
}
