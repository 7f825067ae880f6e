package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("error_occurred", trace.WithAttributes(
		attrs...,
	))
}

// SetFailure marks a span as failed for a reported, non-error outcome such as a node result.
func SetFailure(span trace.Span, message string) {
	span.SetStatus(codes.Error, message)
	span.SetAttributes(attribute.Bool("autopilot.failed", true))
}
