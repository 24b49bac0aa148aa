package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/config"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/server"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	os.Unsetenv("SYNAPSE_API_KEYS")

	cfg := &config.Config{
		Port:    0,
		Version: "test",
		Pipeline: config.PipelineConfig{
			AgentTimeout:       5 * time.Second,
			ProvenanceCapacity: 100,
			MemoryCapacity:     100,
		},
		RateLimit: config.RateLimitConfig{WindowMs: 60000, MaxRequests: 100},
		Telemetry: config.TelemetryConfig{Enabled: false},
	}

	srv, err := server.NewWithConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func TestAssistantRequestEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/assistant/request", models.AssistantRequest{
		Query:  "Create a tracker for sleep",
		UserID: "u1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope models.AIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	assert.NotEmpty(t, envelope.ID)
	require.NotEmpty(t, envelope.Messages)
	assert.NotEmpty(t, envelope.Messages[0])
	assert.Contains(t, envelope.Metadata.AgentsUsed, "planner")
	assert.Contains(t, envelope.Metadata.AgentsUsed, "tool")
}

func TestAssistantRequestMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/assistant/request", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestAssistantStreamEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/assistant/stream", models.AssistantRequest{
		Query:  "Create a tracker for sleep",
		UserID: "u1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "ndjson")

	var (
		frames    []models.StreamFrame
		textTotal strings.Builder
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var frame models.StreamFrame
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &frame))
		frames = append(frames, frame)
		if frame.Type == "text" {
			textTotal.WriteString(frame.Text)
			assert.LessOrEqual(t, len([]rune(frame.Text)), 20)
		}
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, frames)
	assert.Equal(t, "done", frames[len(frames)-1].Type)
	assert.NotEmpty(t, textTotal.String())

	var sawProvenance bool
	for _, f := range frames {
		if f.Type == "provenance" {
			sawProvenance = true
		}
	}
	assert.True(t, sawProvenance)
}

func TestAgentRunEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/agents/reasoning/run", models.AgentRunRequest{
		Query:  "hello there",
		UserID: "u1",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope models.AgentRunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
	require.NotNil(t, envelope.Result)
	assert.Equal(t, "reasoning", envelope.Result.AgentID)
}

func TestListAgentsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/agents")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var descriptors []models.AgentDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptors))
	assert.Len(t, descriptors, 7)
}

func TestProvenanceEndpoints(t *testing.T) {
	ts := newTestServer(t)

	reqResp := postJSON(t, ts.URL+"/api/v1/assistant/request", models.AssistantRequest{
		Query:  "analyze my sleep trends",
		UserID: "u1",
	})
	var envelope models.AIResponse
	require.NoError(t, json.NewDecoder(reqResp.Body).Decode(&envelope))
	reqResp.Body.Close()

	resp, err := http.Get(ts.URL + "/api/v1/provenance/" + envelope.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chain models.ProvenanceChain
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chain))
	assert.Equal(t, envelope.ID, chain.RequestID)
	assert.NotEmpty(t, chain.Entries)

	missing, err := http.Get(ts.URL + "/api/v1/provenance/does-not-exist")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	stats, err := http.Get(ts.URL + "/api/v1/provenance/stats")
	require.NoError(t, err)
	defer stats.Body.Close()
	var s models.ProvenanceStats
	require.NoError(t, json.NewDecoder(stats.Body).Decode(&s))
	assert.GreaterOrEqual(t, s.Chains, 1)
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(t)

	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	version, err := http.Get(ts.URL + "/version")
	require.NoError(t, err)
	defer version.Body.Close()
	var v map[string]string
	require.NoError(t, json.NewDecoder(version.Body).Decode(&v))
	assert.Equal(t, "test", v["version"])
}

func TestIdentityHeaderFeedsRateLimiter(t *testing.T) {
	ts := newTestServer(t)

	buf, _ := json.Marshal(models.AssistantRequest{Query: "hello there"})
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/assistant/request", bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "header-user")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope models.AIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.True(t, envelope.Success)
}
