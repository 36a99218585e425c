package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the presence engine counters. A nil *Metrics records nothing.
type Metrics struct {
	heartbeats    metric.Int64Counter
	pendings      metric.Int64Counter
	autoCheckouts metric.Int64Counter
}

// NewMetrics registers the counters on a meter from provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(instrumentationName)
	heartbeats, err := meter.Int64Counter("presence.heartbeats",
		metric.WithDescription("Heartbeats processed, by classification."))
	if err != nil {
		return nil, err
	}
	pendings, err := meter.Int64Counter("presence.pendings.created",
		metric.WithDescription("Grace countdowns opened, by reason."))
	if err != nil {
		return nil, err
	}
	autoCheckouts, err := meter.Int64Counter("presence.auto_checkouts",
		metric.WithDescription("Sessions closed by the engine, by reason."))
	if err != nil {
		return nil, err
	}
	return &Metrics{heartbeats: heartbeats, pendings: pendings, autoCheckouts: autoCheckouts}, nil
}

// Heartbeat counts one processed heartbeat.
func (m *Metrics) Heartbeat(ctx context.Context, classification string) {
	if m == nil {
		return
	}
	m.heartbeats.Add(ctx, 1, metric.WithAttributes(attribute.String("classification", classification)))
}

// PendingCreated counts one opened countdown.
func (m *Metrics) PendingCreated(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.pendings.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// AutoCheckout counts one engine checkout.
func (m *Metrics) AutoCheckout(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.autoCheckouts.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
