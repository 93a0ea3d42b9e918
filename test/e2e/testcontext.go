//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	promdto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/monx-observability/fleet-telemetry/internal/api"
)

var errMetricNotFound = errors.New("metric not found")

type TestConfig struct {
	Name         string
	MetricsPort  int
	PollInterval time.Duration
	Push         bool
}

type TestContext struct {
	Config TestConfig

	Backend *FakeBackend

	process    *Process
	httpClient *http.Client
}

func CreateTestConfig(test string) (TestConfig, error) {
	port, err := freePort()
	if err != nil {
		return TestConfig{}, err
	}

	return TestConfig{
		Name:         test,
		MetricsPort:  port,
		PollInterval: time.Second,
		Push:         true,
	}, nil
}

func CreateTestContext(conf TestConfig) TestContext {
	return TestContext{
		Config:     conf,
		Backend:    NewFakeBackend(),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Deploy starts binary against the fake backend and waits for its api to answer.
func (tc *TestContext) Deploy(ctx context.Context, binary string) error {
	env := map[string]string{
		"FLEETTELEMETRY_LOGS_LEVEL":              "2",
		"FLEETTELEMETRY_METRICS_PORT":            strconv.Itoa(tc.Config.MetricsPort),
		"FLEETTELEMETRY_BACKEND_URL":             tc.Backend.URL(),
		"FLEETTELEMETRY_POLL_INTERVAL":           tc.Config.PollInterval.String(),
		"FLEETTELEMETRY_POLL_TIMEOUT":            (tc.Config.PollInterval / 2).String(),
		"FLEETTELEMETRY_PUSH_ENABLED":            strconv.FormatBool(tc.Config.Push),
		"FLEETTELEMETRY_PUSH_URL":                tc.Backend.StreamURL(),
		"FLEETTELEMETRY_PUSH_RECONNECT_DELAY":    "200ms",
		"FLEETTELEMETRY_PUSH_RECONNECT_MAXDELAY": "1s",
	}

	process, err := StartProcess(binary, env)
	if err != nil {
		return err
	}

	tc.process = process

	deadline := time.Now().Add(30 * time.Second)

	for time.Now().Before(deadline) {
		_, err = tc.HttpGet(ctx, tc.URL("/snapshot"))
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	return fmt.Errorf("%s never answered: %w, output: %s", tc.Config.Name, err, process.Output())
}

func (tc *TestContext) Shutdown(ctx context.Context) error {
	defer tc.Backend.Close()

	if tc.process == nil {
		return nil
	}

	err := tc.process.Stop()
	if err != nil {
		return fmt.Errorf("failed to stop %s: %w", tc.Config.Name, err)
	}

	return nil
}

func (tc TestContext) Output() string {
	if tc.process == nil {
		return ""
	}

	return tc.process.Output()
}

func (tc TestContext) URL(path string) string {
	return fmt.Sprintf("http://localhost:%d%s", tc.Config.MetricsPort, path)
}

func (tc TestContext) HttpGet(ctx context.Context, url string) (string, error) {
	status, body, err := tc.get(ctx, url)
	if err != nil {
		return "", err
	}

	if status != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", status, body)
	}

	return string(body), nil
}

// GetJSON decodes the answer of the api into out and returns the status code.
func (tc TestContext) GetJSON(ctx context.Context, path string, out any) (int, error) {
	status, body, err := tc.get(ctx, tc.URL(path))
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return status, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return status, nil
}

func (tc TestContext) Snapshot(ctx context.Context) (api.SnapshotResponse, error) {
	ret := api.SnapshotResponse{}

	_, err := tc.GetJSON(ctx, "/snapshot", &ret)

	return ret, err
}

// CounterValue sums the values of the counter name whose labels match.
func (tc TestContext) CounterValue(ctx context.Context, name string, labels map[string]string) (float64, error) {
	metrics, err := tc.HttpGet(ctx, tc.URL("/metrics"))
	if err != nil {
		return 0, err
	}

	family, err := findMetric(metrics, name)
	if err != nil {
		return 0, err
	}

	ret := 0.0

	for _, metric := range family.Metric {
		if metric.Counter == nil || !matchLabels(metric, labels) {
			continue
		}

		ret += metric.Counter.GetValue()
	}

	return ret, nil
}

func (tc TestContext) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read body: %w", err)
	}

	return resp.StatusCode, body, nil
}

func findMetric(metrics string, name string) (*promdto.MetricFamily, error) {
	parser := expfmt.TextParser{}

	metricFamilies, err := parser.TextToMetricFamilies(strings.NewReader(metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}

	family, ok := metricFamilies[name]
	if !ok || family == nil {
		return nil, fmt.Errorf("%w: %s", errMetricNotFound, name)
	}

	return family, nil
}

func matchLabels(metric *promdto.Metric, labels map[string]string) bool {
	found := 0

	for _, pair := range metric.Label {
		expected, ok := labels[pair.GetName()]
		if !ok {
			continue
		}

		if expected != pair.GetValue() {
			return false
		}

		found++
	}

	return found == len(labels)
}

func freePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to find a free port: %w", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port, nil
}
