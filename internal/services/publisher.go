// Package services orchestrates storage, cache and event publishing for the API.
package services

import (
	"context"

	"finarth/internal/amqp"
	"finarth/internal/log"
)

// Publisher delivers domain events to the worker. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.Event) error
}

// publish is best effort: the request already succeeded locally.
func publish(ctx context.Context, p Publisher, logger *log.Logger, ev amqp.Event, buildErr error) {
	if buildErr != nil {
		logger.ErrorContext(ctx, "Failed to build event", log.FieldError, buildErr)
		return
	}
	if p == nil {
		logger.DebugContext(ctx, "No publisher configured, skipping event", log.FieldEventType, ev.Type)
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "Failed to publish event",
			log.FieldEventType, ev.Type,
			log.FieldError, err)
	}
}
