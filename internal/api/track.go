package api

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/lexsync/internal/instrumentation"
)

// Track starts a span for one adapter operation. The returned function
// must be called exactly once with the operation's raw error; it normalizes
// the error, records the outcome and ends the span.
func Track(ctx context.Context, m *instrumentation.Metrics, service, operation string, attrs ...attribute.KeyValue) (context.Context, func(error) error) {
	ctx, span := instrumentation.StartResourceSpan(ctx, service, operation, attrs...)

	return ctx, func(err error) error {
		err = Normalize(err)

		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		m.RecordResourceOperation(ctx, service, operation, status)
		instrumentation.EndSpan(span, err)
		return err
	}
}
