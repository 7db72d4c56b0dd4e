package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: "check_violation"},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "connection", err: errors.New("connection refused"), want: "connection"},
		{name: "unknown", err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDBErr(tt.err))
		})
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("events.join", func() error { return &pgconn.PgError{Code: "40001"} })
	require.Error(t, err)
	require.NoError(t, p.ObserveDB("events.join", func() error { return nil }))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("events.join", "serialization_failure")))
}

func TestObserveRSVP_NilSafe(t *testing.T) {
	var p *Prom
	p.ObserveRSVP("joined")
	p.ObserveCache(true)

	p = NewProm(prometheus.NewRegistry())
	p.ObserveRSVP("event_full")
	p.ObserveRSVP("event_full")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.RSVPOutcomes.WithLabelValues("event_full")))
}

func TestTraceHandler_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "inside span")
	span.End()

	assert.Contains(t, buf.String(), `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
}
