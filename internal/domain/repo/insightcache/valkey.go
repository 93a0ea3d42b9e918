package insightcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/jonboulle/clockwork"
	"github.com/valkey-io/valkey-go"

	"github.com/monx-observability/fleet-telemetry/internal/common"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

const (
	categoryInternalError     = "valkey_internal_error"
	categoryValkeyClientError = "valkey_client"

	keyPrefix = "fleet-telemetry:insight:"
)

// storedInsight is the valkey value: the backend answer and when it was fetched.
type storedInsight struct {
	FetchedAt time.Time            `json:"fetchedAt"`
	Response  repo.InsightResponse `json:"response"`
}

// ValkeyStore shares insights between engine replicas. Successful backend answers are
// written through with the given expiration, a stored answer younger than the expiration
// is served instead of asking the backend again. Served answers keep their original fetch
// time.
type ValkeyStore struct {
	logger *logr.Logger

	client     valkey.Client
	clock      clockwork.Clock
	expiration time.Duration
	inner      repo.InsightReader
}

func NewValkeyStore(client valkey.Client, clock clockwork.Clock, expiration time.Duration, inner repo.InsightReader) ValkeyStore {
	return ValkeyStore{
		client:     client,
		clock:      clock,
		expiration: expiration,
		inner:      inner,
	}
}

func (s ValkeyStore) WithLogger(logger logr.Logger) ValkeyStore {
	s.logger = &logger

	return s
}

// FetchInsight never fails because of valkey alone: a storage error falls back to the backend.
func (s ValkeyStore) FetchInsight(ctx context.Context, identity string) (repo.InsightResponse, error) {
	stored, found, err := s.Read(ctx, identity)
	if err != nil {
		s.logError(err, "Failed to read shared insight, asking the backend", "identity", identity)
	}

	if err == nil && found {
		return stored, nil
	}

	resp, err := s.inner.FetchInsight(ctx, identity)
	if err != nil {
		return resp, err
	}

	if !resp.Success || resp.Data == nil {
		return resp, nil
	}

	resp.FetchedAt = s.clock.Now()

	err = s.Write(ctx, identity, resp)
	if err != nil {
		s.logError(err, "Failed to share insight", "identity", identity)
	}

	return resp, nil
}

// Read returns the stored answer of identity. An answer as old as the expiration is
// reported as missing.
func (s ValkeyStore) Read(ctx context.Context, identity string) (repo.InsightResponse, bool, error) {
	command := s.client.B().Get().Key(keyOf(identity)).Build()

	value, err := s.client.Do(ctx, command).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return repo.InsightResponse{}, false, nil
		}

		return repo.InsightResponse{}, false, s.wrap(err, "failed to get insight of %s", identity)
	}

	stored := storedInsight{}

	err = json.Unmarshal([]byte(value), &stored)
	if err != nil {
		return repo.InsightResponse{}, false, common.NewErrProcessingError(err, categoryInternalError, nil, "failed to unmarshal insight of %s", identity)
	}

	if stored.FetchedAt.IsZero() || s.clock.Since(stored.FetchedAt) >= s.expiration {
		s.logInfo(2, "Ignoring expired shared insight", "identity", identity, "fetchedAt", stored.FetchedAt)

		return repo.InsightResponse{}, false, nil
	}

	ret := stored.Response
	ret.FetchedAt = stored.FetchedAt

	return ret, true, nil
}

// Write stores resp with the expiration in a single command. A zero FetchedAt is stamped
// with the current time.
func (s ValkeyStore) Write(ctx context.Context, identity string, resp repo.InsightResponse) error {
	fetchedAt := resp.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = s.clock.Now()
	}

	data, err := json.Marshal(storedInsight{FetchedAt: fetchedAt, Response: resp})
	if err != nil {
		return common.NewErrProcessingError(err, categoryInternalError, nil, "failed to marshal insight")
	}

	command := s.client.B().Set().Key(keyOf(identity)).Value(string(data)).ExSeconds(expirationSeconds(s.expiration)).Build()

	err = s.client.Do(ctx, command).Error()
	if err != nil {
		return s.wrap(err, "failed to set insight of %s", identity)
	}

	return nil
}

func (s ValkeyStore) wrap(err error, reason string, args ...interface{}) error {
	if s.isRetryable(err) {
		return common.NewRetryableErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
	}

	return common.NewErrProcessingError(err, categoryValkeyClientError, nil, reason, args...)
}

func (s ValkeyStore) isRetryable(err error) bool {
	// Network error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	vErr, isValkeyError := valkey.IsValkeyErr(err)
	if !isValkeyError {
		return false
	}

	return vErr.IsTryAgain()
}

func (s ValkeyStore) logInfo(level int, msg string, keysAndValues ...any) {
	if s.logger == nil {
		return
	}

	s.logger.V(level).Info(msg, keysAndValues...)
}

func (s ValkeyStore) logError(err error, msg string, keysAndValues ...any) {
	if s.logger == nil {
		return
	}

	s.logger.Error(err, msg, keysAndValues...)
}

func keyOf(identity string) string {
	return fmt.Sprintf("%s%s", keyPrefix, identity)
}

// expirationSeconds rounds up, valkey rejects an expiration of 0.
func expirationSeconds(d time.Duration) int64 {
	ret := int64((d + time.Second - 1) / time.Second)
	if ret < 1 {
		return 1
	}

	return ret
}
