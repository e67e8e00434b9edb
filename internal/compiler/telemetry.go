package compiler

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/gplan/internal/ir"
)

// Package-level tracer and meter for compilation.
var (
	tracer = otel.Tracer("gplan.compiler")
	meter  = otel.Meter("gplan.compiler")
)

var (
	compileLatency metric.Float64Histogram
	compileTotal   metric.Int64Counter
	planVertices   metric.Int64Histogram
	abortedTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		compileLatency, err = meter.Float64Histogram(
			"gplan_compile_duration_seconds",
			metric.WithDescription("Duration of query compilations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		compileTotal, err = meter.Int64Counter(
			"gplan_compile_total",
			metric.WithDescription("Total number of query compilations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		planVertices, err = meter.Int64Histogram(
			"gplan_plan_vertices",
			metric.WithDescription("Number of operator vertices per compiled plan"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		abortedTotal, err = meter.Int64Counter(
			"gplan_cost_estimation_aborted_total",
			metric.WithDescription("Match selections that ran out of step budget"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startCompileSpan(ctx context.Context, name, compilationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Compiler.Compile",
		trace.WithAttributes(
			attribute.String("gplan.query", name),
			attribute.String("gplan.compilation_id", compilationID),
		),
	)
}

// startPhase opens a child span for one pipeline phase.
func startPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Compiler."+phase)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func setCompileSpanResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("gplan.vertices", res.Plan.Len()),
		attribute.String("gplan.fingerprint", res.Fingerprint),
		attribute.StringSlice("gplan.passes", res.Passes),
		attribute.Int("gplan.warnings", len(res.Warnings)),
	)
}

// recordCompileMetrics records the outcome of one compilation. The code
// attribute is the compile error code, or "OK".
func recordCompileMetrics(ctx context.Context, duration time.Duration, res *Result, err error) {
	if err := initMetrics(); err != nil {
		return
	}

	code := "OK"
	if err != nil {
		code = string(ir.CodeOf(err))
		if code == "" {
			code = "INTERNAL"
		}
	}
	attrs := metric.WithAttributes(attribute.String("code", code))
	compileLatency.Record(ctx, duration.Seconds(), attrs)
	compileTotal.Add(ctx, 1, attrs)

	if res != nil {
		planVertices.Record(ctx, int64(res.Plan.Len()))
		if len(res.Warnings) > 0 {
			abortedTotal.Add(ctx, int64(len(res.Warnings)))
		}
	}
}
