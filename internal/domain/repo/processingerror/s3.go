package processingerror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"github.com/monx-observability/fleet-telemetry/internal/log"
	"github.com/monx-observability/fleet-telemetry/internal/version"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

const (
	unknownHostname = "<unknown>"

	kafkaKeyTemplate  = "<prefix>/<year>/<month>/<day>/kafka/<topic>/<partition>-<offset>.json"
	sourceKeyTemplate = "<prefix>/<year>/<month>/<day>/<source>/<nanos>-<category>.json"
)

var ErrNilOrigin = errors.New("nil origin")

type S3Writer struct {
	s3client *s3.Client
	clock    clockwork.Clock

	bucket string
	prefix string

	hostname string
}

func NewS3Writer(s3client *s3.Client, clock clockwork.Clock, bucket string, prefix string) S3Writer {
	hostname, err := os.Hostname()
	if err != nil {
		log.Logger().Error(err, "failed to get hostname, dead letters are written with "+unknownHostname)

		hostname = unknownHostname
	}

	return S3Writer{
		s3client: s3client,
		clock:    clock,
		bucket:   bucket,
		prefix:   prefix,
		hostname: hostname,
	}
}

// WriteProcessingError stores the failed payload and its failure in the dead letter bucket.
// A failed put is retryable.
func (r S3Writer) WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	deadLetter, err := r.newDeadLetter(pErr)
	if err != nil {
		return fmt.Errorf("failed to create dead letter: %w", err)
	}

	b, err := json.Marshal(deadLetter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	// Compute object key
	key, err := r.computeObjectKey(pErr)
	if err != nil {
		return fmt.Errorf("failed to compute object key: %w", err)
	}

	contentType := "application/json"
	params := &s3.PutObjectInput{
		Bucket:      &r.bucket,
		Key:         &key,
		Body:        bytes.NewReader(b),
		ContentType: &contentType,
	}

	_, err = r.s3client.PutObject(ctx, params)
	if err != nil {
		return pipeline.NewErrRetryableError(fmt.Errorf("failed to write in s3: %w", err))
	}

	return nil
}

func (r S3Writer) newDeadLetter(pErr pipeline.ErrProcessingError) (DeadLetter, error) {
	origin := pErr.Origin
	if origin == nil {
		return DeadLetter{}, ErrNilOrigin
	}

	ret := DeadLetter{
		Writer: Writer{
			Host:      r.hostname,
			Branch:    version.Branch(),
			Revision:  version.Revision(),
			WrittenAt: r.clock.Now(),
		},
		Origin: Origin{
			Source:     origin.Source,
			Topic:      origin.Topic,
			Partition:  origin.Partition,
			Offset:     origin.Offset,
			ReceivedAt: origin.ReceivedAt,
			Payload:    string(origin.Payload),
		},
		Failure: Failure{
			Category:  pErr.Category,
			Error:     pErr.Error(),
			Retryable: errors.Is(pErr, pipeline.ErrRetryableError),
		},
	}

	for _, input := range pErr.AdditionalInputs {
		ret.Inputs = append(ret.Inputs, Input{
			Source: input.Source,
			Key:    input.Key,
			Value:  string(input.Value),
		})
	}

	return ret, nil
}

func (r S3Writer) computeObjectKey(pErr pipeline.ErrProcessingError) (string, error) {
	origin := pErr.Origin
	if origin == nil {
		return "", ErrNilOrigin
	}

	ts := origin.ReceivedAt
	if ts.IsZero() {
		ts = r.clock.Now()
	}

	ts = ts.UTC()

	template := sourceKeyTemplate
	if origin.Topic != "" {
		template = kafkaKeyTemplate
	}

	replacer := strings.NewReplacer(
		"<prefix>", r.prefix,
		"<year>", fmt.Sprintf("%04d", ts.Year()),
		"<month>", fmt.Sprintf("%02d", ts.Month()),
		"<day>", fmt.Sprintf("%02d", ts.Day()),
		"<topic>", origin.Topic,
		"<partition>", fmt.Sprintf("%d", origin.Partition),
		"<offset>", fmt.Sprintf("%d", origin.Offset),
		"<source>", origin.Source,
		"<nanos>", fmt.Sprintf("%d", ts.UnixNano()),
		"<category>", pErr.Category,
	)

	return replacer.Replace(template), nil
}

// Discard drops every processing error, used when no dead letter bucket is configured.
type Discard struct{}

func (Discard) WriteProcessingError(context.Context, pipeline.ErrProcessingError) error {
	return nil
}
