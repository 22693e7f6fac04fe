package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/recordsim/internal/executor"
	"github.com/roach88/recordsim/internal/fault"
	"github.com/roach88/recordsim/internal/message"
	"github.com/roach88/recordsim/internal/plugin"
)

// outcome labels a finished request: "ok" or the fault code.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := fault.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

// LoggingMiddleware logs every request and its outcome. A nil logger
// uses the Env logger.
func LoggingMiddleware(logger *slog.Logger) Registration {
	return Registration{
		Name: "logging",
		Builder: func(env *executor.Env) (Middleware, error) {
			l := logger
			if l == nil {
				l = env.Logger
			}
			if l == nil {
				return nil, errors.New("logging middleware requires a logger")
			}
			return func(next Dispatcher) Dispatcher {
				return func(ctx context.Context, req *message.Request) (*message.Response, error) {
					depth := plugin.NextDepth(ctx)
					l.Debug("dispatching request",
						"message", req.Name,
						"depth", depth,
						"parameters", req.Parameters.Names(),
					)
					start := time.Now()
					resp, err := next(ctx, req)
					if err != nil {
						l.Debug("request faulted",
							"message", req.Name,
							"depth", depth,
							"code", outcome(err),
							"error", err,
						)
						return nil, err
					}
					l.Debug("request completed",
						"message", req.Name,
						"depth", depth,
						"duration", time.Since(start),
					)
					return resp, nil
				}
			}, nil
		},
	}
}

// ContractMiddleware rejects requests that miss a required parameter.
func ContractMiddleware(contracts message.Contracts) Registration {
	return Registration{
		Name: "contract",
		Middleware: func(next Dispatcher) Dispatcher {
			return func(ctx context.Context, req *message.Request) (*message.Response, error) {
				if err := contracts.Check(req); err != nil {
					return nil, err
				}
				return next(ctx, req)
			}
		},
	}
}

// Metrics holds the request collectors.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recordsim",
			Name:      "requests_total",
			Help:      "Requests dispatched, by message and outcome.",
		}, []string{"message", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recordsim",
			Name:      "request_duration_seconds",
			Help:      "Request latency, by message.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"message"}),
	}
	for _, c := range []prometheus.Collector{m.Requests, m.Duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Middleware counts and times requests.
func (m *Metrics) Middleware(next Dispatcher) Dispatcher {
	return func(ctx context.Context, req *message.Request) (*message.Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		m.Duration.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(req.Name, outcome(err)).Inc()
		return resp, err
	}
}

// MetricsMiddleware registers m.
func MetricsMiddleware(m *Metrics) Registration {
	return Registration{
		Name:       "metrics",
		Middleware: m.Middleware,
	}
}

// TracingMiddleware opens one span per request.
func TracingMiddleware(tp trace.TracerProvider) Registration {
	return Registration{
		Name: "tracing",
		Builder: func(*executor.Env) (Middleware, error) {
			if tp == nil {
				return nil, nil
			}
			tracer := tp.Tracer("github.com/roach88/recordsim/internal/pipeline")
			return func(next Dispatcher) Dispatcher {
				return func(ctx context.Context, req *message.Request) (*message.Response, error) {
					ctx, span := tracer.Start(ctx, req.Name)
					defer span.End()

					attrs := []attribute.KeyValue{
						attribute.String("recordsim.message", req.Name),
						attribute.Int("recordsim.depth", plugin.NextDepth(ctx)),
					}
					if ref, ok := req.PrimaryTarget(); ok {
						attrs = append(attrs, attribute.String("recordsim.entity", ref.LogicalName))
					}
					span.SetAttributes(attrs...)

					resp, err := next(ctx, req)
					if err != nil {
						span.RecordError(err)
						span.SetStatus(codes.Error, outcome(err))
						return nil, err
					}
					span.SetStatus(codes.Ok, "")
					return resp, nil
				}
			}, nil
		},
	}
}
