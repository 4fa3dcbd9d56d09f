// Package telemetry wires Sentry error reporting and performance tracing.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const (
	serverName   = "docrag"
	flushTimeout = 5 * time.Second
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
	Logger           *zap.Logger
}

// Init starts the Sentry client and returns a flush function for shutdown.
// With no DSN it does nothing.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
		Debug:            cfg.Debug,
		ServerName:       serverName,
	})
	if err != nil {
		return noop, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("sentry initialized",
			zap.String("environment", cfg.Environment),
			zap.Float64("traces_sample_rate", cfg.TracesSampleRate),
		)
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops probe traffic and keeps child spans consistent with their
// parent's decision.
func sampler(rate float64) sentry.TracesSampler {
	var noParent sentry.SpanID
	return func(sc sentry.SamplingContext) float64 {
		span := sc.Span
		switch {
		case span.Name == "GET /health", span.Name == "GET /metrics":
			return 0
		case span.ParentSpanID != noParent:
			if span.Sampled.Bool() {
				return 1
			}
			return 0
		default:
			return rate
		}
	}
}

// SpanAttributes are the pipeline tags recorded on a span. Zero values are
// left off.
type SpanAttributes struct {
	OwnerID     *int64
	DocumentID  int64
	ContentType string
	Backend     string
	Operation   string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if a.OwnerID != nil {
		span.SetTag("owner_id", strconv.FormatInt(*a.OwnerID, 10))
	}
	if a.DocumentID != 0 {
		span.SetTag("document_id", strconv.FormatInt(a.DocumentID, 10))
	}
	if a.ContentType != "" {
		span.SetTag("content_type", a.ContentType)
	}
	if a.Backend != "" {
		span.SetTag("vector_backend", a.Backend)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a started Sentry span. A nil *Span is safe to use.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

// SetError records err on the span. Caller mistakes such as validation and
// not-found errors only set the status; everything else is also reported as
// an exception.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}

	code := domain.CodeOf(err)
	if code != "" {
		s.inner.SetTag("error_code", code)
	}
	if status, expected := expectedStatus(code); expected {
		s.inner.Status = status
		return
	}

	s.inner.Status = sentry.SpanStatusInternalError
	hub := sentry.GetHubFromContext(s.inner.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

func expectedStatus(code string) (sentry.SpanStatus, bool) {
	switch code {
	case domain.ErrCodeValidation, domain.ErrCodeUnsupportedFormat,
		domain.ErrCodePayloadTooLarge, domain.ErrCodeDurationExceeded:
		return sentry.SpanStatusInvalidArgument, true
	case domain.ErrCodeNotFound:
		return sentry.SpanStatusNotFound, true
	case domain.ErrCodeUnauthorized:
		return sentry.SpanStatusUnauthenticated, true
	case domain.ErrCodeEmbeddingModelNotReady:
		return sentry.SpanStatusUnavailable, true
	}
	return sentry.SpanStatusUndefined, false
}
