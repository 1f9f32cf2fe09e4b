package events

import (
	"context"
	"errors"
	"reflect"
)

// CompositeSink fans an event out to every wrapped sink.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink drops nil entries and returns nil when none remain.
func NewCompositeSink(sinks ...Sink) Sink {
	filtered := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if isNil(sink) {
			continue
		}
		filtered = append(filtered, sink)
	}
	if len(filtered) == 0 {
		return nil
	}
	return &CompositeSink{sinks: filtered}
}

func (c *CompositeSink) Notify(ctx context.Context, event Event) error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// typed nil pointers such as a (*WebhookSink)(nil) are treated as absent.
func isNil(sink Sink) bool {
	if sink == nil {
		return true
	}
	v := reflect.ValueOf(sink)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
