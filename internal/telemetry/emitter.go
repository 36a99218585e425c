package telemetry

import (
	"context"
	"errors"

	"presence-engine/internal/telemetry/domain"
)

// EventEmitter emits presence events (OTel Logs, Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// MultiEmitter fans an event out to every non-nil emitter. All emitters run even if one fails.
type MultiEmitter []EventEmitter

// Emit implements EventEmitter. The returned error joins every failure.
func (m MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
