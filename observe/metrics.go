// Package observe provides the engine's observability primitives:
// OpenTelemetry metric instruments and zap logger construction.
//
// A package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/nathoo/tilecore"

// Metrics holds the metric instruments recorded by the engine.
type Metrics struct {
	// EventsStarted counts map events that began running. Attributes:
	//   attribute.String("map", ...), attribute.String("event", ...)
	EventsStarted metric.Int64Counter

	// EventsDropped counts running events abandoned because an action could
	// not be resolved or constructed. Attribute: attribute.String("reason", ...)
	EventsDropped metric.Int64Counter

	// ActionsCompleted counts actions that ran to completion.
	// Attribute: attribute.String("action", ...)
	ActionsCompleted metric.Int64Counter

	// PathfindFailures counts searches that found no route.
	PathfindFailures metric.Int64Counter

	// PathLength records the number of tiles in successful paths.
	PathLength metric.Int64Histogram

	// MapsLoaded counts map changes.
	MapsLoaded metric.Int64Counter

	// ActiveActors tracks actors present in the world.
	ActiveActors metric.Int64UpDownCounter
}

var pathBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EventsStarted, err = m.Int64Counter("tilecore.events.started",
		metric.WithDescription("Map events started by map and event id."),
	); err != nil {
		return nil, err
	}
	if met.EventsDropped, err = m.Int64Counter("tilecore.events.dropped",
		metric.WithDescription("Running events dropped by reason."),
	); err != nil {
		return nil, err
	}
	if met.ActionsCompleted, err = m.Int64Counter("tilecore.actions.completed",
		metric.WithDescription("Actions run to completion by action type."),
	); err != nil {
		return nil, err
	}
	if met.PathfindFailures, err = m.Int64Counter("tilecore.pathfind.failures",
		metric.WithDescription("Pathfinding searches that found no route."),
	); err != nil {
		return nil, err
	}
	if met.PathLength, err = m.Int64Histogram("tilecore.pathfind.length",
		metric.WithDescription("Length in tiles of paths found."),
		metric.WithExplicitBucketBoundaries(pathBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MapsLoaded, err = m.Int64Counter("tilecore.maps.loaded",
		metric.WithDescription("Maps made current, by map name."),
	); err != nil {
		return nil, err
	}
	if met.ActiveActors, err = m.Int64UpDownCounter("tilecore.actors.active",
		metric.WithDescription("Actors present in the world."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordEventStarted increments the started counter for an event.
func (m *Metrics) RecordEventStarted(ctx context.Context, mapName, eventID string) {
	m.EventsStarted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("map", mapName),
			attribute.String("event", eventID),
		),
	)
}

// RecordEventDropped increments the dropped counter.
func (m *Metrics) RecordEventDropped(ctx context.Context, reason string) {
	m.EventsDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordActionCompleted increments the completed counter for an action type.
func (m *Metrics) RecordActionCompleted(ctx context.Context, action string) {
	m.ActionsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordPath records a pathfinding outcome. A negative length is a failure.
func (m *Metrics) RecordPath(ctx context.Context, mapName string, length int) {
	if length < 0 {
		m.PathfindFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("map", mapName)))
		return
	}
	m.PathLength.Record(ctx, int64(length))
}

// RecordMapLoaded increments the map counter.
func (m *Metrics) RecordMapLoaded(ctx context.Context, mapName string) {
	m.MapsLoaded.Add(ctx, 1, metric.WithAttributes(attribute.String("map", mapName)))
}
