package common

import (
	"fmt"

	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// Error categories shared by every source.
const (
	// CategoryTransport is a fetch or connection failure, prior state is kept.
	CategoryTransport = "transport"
	// CategoryDecode is a malformed payload, the whole update is dropped.
	CategoryDecode = "decode"
	// CategoryInsightFetch is a failed insight refresh.
	CategoryInsightFetch = "insight_fetch"
)

func NewErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	cause := fmt.Sprintf(reason, args...)
	dErr := fmt.Errorf("%s: %w", cause, err)

	return pipeline.NewErrProcessingError(dErr, category, inputs)
}

func NewRetryableErrProcessingError(err error, category string, inputs []pipeline.Input, reason string, args ...interface{}) pipeline.ErrProcessingError {
	return NewErrProcessingError(pipeline.NewErrRetryableError(err), category, inputs, reason, args...)
}

// NewTransportError wraps a fetch failure of the given source.
func NewTransportError(err error, source string) pipeline.ErrProcessingError {
	return NewRetryableErrProcessingError(err, CategoryTransport, nil, "failed to fetch %s", source).
		WithOrigin(pipeline.Origin{Source: source})
}

// NewDecodeError wraps a malformed payload of the given source.
func NewDecodeError(err error, source string, payload []byte) pipeline.ErrProcessingError {
	return NewErrProcessingError(err, CategoryDecode, nil, "failed to decode %s payload", source).
		WithOrigin(pipeline.Origin{Source: source, Payload: payload})
}
