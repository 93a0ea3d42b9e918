package insightcache_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/valkey-io/valkey-go"
	"go.uber.org/mock/gomock"

	"github.com/monx-observability/fleet-telemetry/internal/config"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/insightcache"
	"github.com/monx-observability/fleet-telemetry/internal/domain/repo/mock"
	"github.com/monx-observability/fleet-telemetry/internal/factory"
	"github.com/monx-observability/fleet-telemetry/pkg/pipeline"
)

// Helper

var t0 = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func startValkey(t *testing.T) testcontainers.Container {
	req := testcontainers.ContainerRequest{
		Image:        "quay.io/sclorg/valkey-7-c10s:bf91acf0827dc5db216164aafe3d34beb245dcec",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections tcp"),
	}
	ret, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})

	testcontainers.CleanupContainer(t, ret)

	require.NoError(t, err, "failed to start valkey instance")

	return ret
}

func createValkeyClient(t *testing.T, container testcontainers.Container) valkey.Client {
	endpoint, err := container.Endpoint(context.Background(), "")
	require.NoError(t, err, "failed to get valkey endpoint")

	ret, _, err := factory.CreateValkeyClient(context.Background(), config.Valkey{URL: endpoint})
	require.NoError(t, err, "failed to create valkey client")

	return ret
}

func insightResponse(analysis string) repo.InsightResponse {
	return repo.InsightResponse{
		Success: true,
		Data: &repo.InsightData{
			Severity:       "LOW",
			Confidence:     0.5,
			Analysis:       analysis,
			RootCause:      "none",
			SuggestedFixes: []string{"wait"},
		},
	}
}

// Test suite definition

type ValkeyStoreIntegrationTestSuite struct {
	suite.Suite

	client    valkey.Client
	container testcontainers.Container
}

func (s *ValkeyStoreIntegrationTestSuite) SetupSuite() {
	t := s.T()

	s.container = startValkey(t)
	s.client = createValkeyClient(t, s.container)
}

func (s *ValkeyStoreIntegrationTestSuite) TearDownTest() {
	ctx := context.Background()
	command := s.client.B().Flushall().Build()

	err := s.client.Do(ctx, command).Error()
	require.NoError(s.T(), err, "failed to clean valkey")
}

// Run test

func TestValkeyStoreIntegrationTestSuite(t *testing.T) {
	t.Parallel()

	suite.Run(t, new(ValkeyStoreIntegrationTestSuite))
}

// Test

func (s *ValkeyStoreIntegrationTestSuite) TestWriteThroughThenRead() {
	ctx := context.Background()
	t := s.T()

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(insightResponse("first"), nil).Times(1)

	store := insightcache.NewValkeyStore(s.client, clockwork.NewFakeClockAt(t0), time.Minute, inner)

	resp, err := store.FetchInsight(ctx, "checkout")
	require.NoError(t, err, "failed to fetch insight (1)")
	assert.Equal(t, "first", resp.Data.Analysis)

	resp, err = store.FetchInsight(ctx, "checkout")
	require.NoError(t, err, "failed to fetch insight (2)")
	assert.Equal(t, insightResponse("first").Data, resp.Data, "stored insight differs")
	assert.True(t, t0.Equal(resp.FetchedAt), "fetch time is %v", resp.FetchedAt)
}

func (s *ValkeyStoreIntegrationTestSuite) TestStoredInsightKeepsItsFetchTime() {
	ctx := context.Background()
	t := s.T()

	clock := clockwork.NewFakeClockAt(t0)

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(insightResponse("first"), nil).Times(1)

	store := insightcache.NewValkeyStore(s.client, clock, time.Minute, inner)

	_, err := store.FetchInsight(ctx, "checkout")
	require.NoError(t, err)

	// Another replica reads it later
	clock.Advance(50 * time.Second)

	resp, err := store.FetchInsight(ctx, "checkout")
	require.NoError(t, err)
	assert.True(t, t0.Equal(resp.FetchedAt), "stored insight was re-stamped: %v", resp.FetchedAt)
}

func (s *ValkeyStoreIntegrationTestSuite) TestExpiredInsightIsFetchedAgain() {
	ctx := context.Background()
	t := s.T()

	clock := clockwork.NewFakeClockAt(t0)

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	gomock.InOrder(
		inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(insightResponse("first"), nil).Times(1),
		inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(insightResponse("second"), nil).Times(1),
	)

	store := insightcache.NewValkeyStore(s.client, clock, time.Minute, inner)

	_, err := store.FetchInsight(ctx, "checkout")
	require.NoError(t, err)

	// The key is still in valkey but its content is as old as the expiration
	clock.Advance(time.Minute)

	_, found, err := store.Read(ctx, "checkout")
	require.NoError(t, err)
	assert.False(t, found, "an insight as old as the expiration must not be served")

	resp, err := store.FetchInsight(ctx, "checkout")
	require.NoError(t, err)
	assert.Equal(t, "second", resp.Data.Analysis)
	assert.True(t, clock.Now().Equal(resp.FetchedAt))
}

func (s *ValkeyStoreIntegrationTestSuite) TestFailuresAreNotStored() {
	ctx := context.Background()
	t := s.T()

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(repo.InsightResponse{Success: false}, nil).Times(2)

	store := insightcache.NewValkeyStore(s.client, clockwork.NewFakeClockAt(t0), time.Minute, inner)

	for i := 0; i < 2; i++ {
		resp, err := store.FetchInsight(ctx, "checkout")
		require.NoError(t, err)
		assert.False(t, resp.Success)
	}

	_, found, err := store.Read(ctx, "checkout")
	require.NoError(t, err)
	assert.False(t, found)
}

func (s *ValkeyStoreIntegrationTestSuite) TestBackendErrorIsReturned() {
	ctx := context.Background()
	t := s.T()

	errBackend := errors.New("backend down")

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	inner.EXPECT().FetchInsight(gomock.Any(), "billing").Return(repo.InsightResponse{}, errBackend)

	store := insightcache.NewValkeyStore(s.client, clockwork.NewFakeClockAt(t0), time.Minute, inner)

	_, err := store.FetchInsight(ctx, "billing")
	require.ErrorIs(t, err, errBackend)
}

func (s *ValkeyStoreIntegrationTestSuite) TestExpiration() {
	ctx := context.Background()
	t := s.T()

	store := insightcache.NewValkeyStore(s.client, clockwork.NewFakeClockAt(t0), time.Minute, nil)

	err := store.Write(ctx, "checkout", insightResponse("first"))
	require.NoError(t, err, "failed to write insight")

	// This is breaking black-box testing but is convenient...
	command := s.client.B().Ttl().Key("fleet-telemetry:insight:checkout").Build()

	resp := s.client.Do(ctx, command)
	require.NoError(t, resp.Error(), "failed to get TTL")

	ttl, err := resp.AsInt64() // ttl in second
	require.NoError(t, err, "TTL is not a int64")

	assert.Greater(t, ttl, int64(45), "ttl is supposed to be 1min") // Keeping some margin
}

func TestLosingConnection(t *testing.T) {
	t.Parallel()

	container := startValkey(t)
	client := createValkeyClient(t, container)

	inner := mock.NewMockInsightReader(gomock.NewController(t))
	inner.EXPECT().FetchInsight(gomock.Any(), "checkout").Return(insightResponse("fallback"), nil)

	store := insightcache.NewValkeyStore(client, clockwork.NewFakeClockAt(t0), time.Minute, inner)

	// stop the container
	err := container.Terminate(context.Background())
	require.NoError(t, err, "failed to terminate valkey")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, _, err = store.Read(ctx, "checkout")
	require.Error(t, err, "read should fail")
	require.ErrorIs(t, err, pipeline.ErrRetryableError, "error should be retryable: %v", reflect.TypeOf(err))

	fetchCtx, fetchCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer fetchCancel()

	resp, err := store.FetchInsight(fetchCtx, "checkout")
	require.NoError(t, err, "fetch should fall back to the backend")
	assert.Equal(t, "fallback", resp.Data.Analysis)
}
