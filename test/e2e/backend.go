//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/monx-observability/fleet-telemetry/internal/domain/repo"
)

// FakeBackend serves the dashboard api the engine reads from, state can be changed at
// any time by the tests.
type FakeBackend struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu           sync.Mutex
	agents       []repo.AgentRecord
	agentsStatus int
	anomalies    []repo.AnomalyRecord
	logs         []repo.LogRecord
	insights     map[string]repo.InsightData
	insightCalls map[string]int
	streams      map[*websocket.Conn]struct{}
}

func NewFakeBackend() *FakeBackend {
	ret := &FakeBackend{
		agentsStatus: http.StatusOK,
		insights:     map[string]repo.InsightData{},
		insightCalls: map[string]int{},
		streams:      map[*websocket.Conn]struct{}{},
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /api/agents", ret.getAgents)
	router.HandleFunc("GET /api/anomalies", ret.getAnomalies)
	router.HandleFunc("GET /api/logs", ret.getLogs)
	router.HandleFunc("GET /api/ai-insights", ret.getInsight)
	router.HandleFunc("GET /ws", ret.subscribe)

	ret.server = httptest.NewServer(router)

	return ret
}

func (b *FakeBackend) URL() string {
	return b.server.URL
}

func (b *FakeBackend) StreamURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws"
}

func (b *FakeBackend) Close() {
	b.mu.Lock()
	for conn := range b.streams {
		_ = conn.Close()
	}
	b.mu.Unlock()

	b.server.Close()
}

func (b *FakeBackend) SetAgents(agents ...repo.AgentRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.agents = agents
}

// FailAgents makes the agents endpoint answer with status until reset with http.StatusOK.
func (b *FakeBackend) FailAgents(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.agentsStatus = status
}

func (b *FakeBackend) SetAnomalies(anomalies ...repo.AnomalyRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.anomalies = anomalies
}

func (b *FakeBackend) SetLogs(logs ...repo.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logs = logs
}

func (b *FakeBackend) SetInsight(identity string, data repo.InsightData) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.insights[identity] = data
}

func (b *FakeBackend) InsightCalls(identity string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.insightCalls[identity]
}

func (b *FakeBackend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.streams)
}

// Push writes one raw message to every open subscription.
func (b *FakeBackend) Push(message []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.streams {
		err := conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			return err
		}
	}

	return nil
}

// PushAnomalies pushes a full anomaly set the way the dashboard does.
func (b *FakeBackend) PushAnomalies(anomalies ...repo.AnomalyRecord) error {
	if anomalies == nil {
		anomalies = []repo.AnomalyRecord{}
	}

	msg, err := json.Marshal(map[string]any{"type": repo.StreamMessageTypeAnomalies, "data": anomalies})
	if err != nil {
		return err
	}

	return b.Push(msg)
}

func (b *FakeBackend) getAgents(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	status, agents := b.agentsStatus, b.agents
	b.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)

		return
	}

	writeEnvelope(w, agents)
}

func (b *FakeBackend) getAnomalies(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	anomalies := b.anomalies
	b.mu.Unlock()

	writeEnvelope(w, anomalies)
}

func (b *FakeBackend) getLogs(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	logs := b.logs
	b.mu.Unlock()

	result := repo.LogSearchResult{}
	for _, l := range logs {
		result.Hits.Hits = append(result.Hits.Hits, repo.LogHit{Source: l})
	}

	writeEnvelope(w, result)
}

func (b *FakeBackend) getInsight(w http.ResponseWriter, r *http.Request) {
	identity := r.URL.Query().Get("agent_id")

	b.mu.Lock()
	b.insightCalls[identity]++
	data, ok := b.insights[identity]
	b.mu.Unlock()

	if !ok {
		writeJSON(w, repo.InsightResponse{Success: false, Error: "no analysis available"})

		return
	}

	writeJSON(w, repo.InsightResponse{Success: true, Data: &data})
}

func (b *FakeBackend) subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.streams[conn] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.streams, conn)
		b.mu.Unlock()

		_ = conn.Close()
	}()

	// Only control frames are expected from the client
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

func writeEnvelope(w http.ResponseWriter, data any) {
	writeJSON(w, map[string]any{"success": true, "data": data})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(body)
}
