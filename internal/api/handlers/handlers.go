// Package handlers implements the HTTP handlers for the Synapse
// assistant orchestrator: the full pipeline endpoint, its streaming
// variant, single-agent runs, and the provenance read side.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/2010nasirm-code/synapse-os-sub001/internal/api/middleware"
	"github.com/2010nasirm-code/synapse-os-sub001/internal/orchestrator"
	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// streamChunkSize is how many characters each streamed text frame
// carries; streamFrameDelay is the pause between frames. Streaming is a
// replay of the already-computed response, not incremental generation.
const (
	streamChunkSize  = 20
	streamFrameDelay = 10 * time.Millisecond
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Coordinator *orchestrator.Coordinator
}

// New creates a new Handlers instance.
func New(coordinator *orchestrator.Coordinator) *Handlers {
	return &Handlers{Coordinator: coordinator}
}

// ── Assistant ────────────────────────────────────────────────

// AssistantRequest runs the full pipeline and returns the response
// envelope. Pipeline rejections (safety, rate limit, agent failure)
// are encoded inside the envelope, not as transport errors.
func (h *Handlers) AssistantRequest(w http.ResponseWriter, r *http.Request) {
	var req models.AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(r.Context())
	}

	resp := h.Coordinator.Handle(r.Context(), &req)
	respondJSON(w, http.StatusOK, resp)
}

// AssistantStream runs the full pipeline, then replays the response as
// NDJSON frames: text in fixed-size chunks, one frame per action, a
// provenance frame, and a final done frame carrying the metadata.
func (h *Handlers) AssistantStream(w http.ResponseWriter, r *http.Request) {
	var req models.AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(r.Context())
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(frame models.StreamFrame) {
		if err := enc.Encode(frame); err != nil {
			log.Debug().Err(err).Msg("Stream write failed, client likely gone")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	resp := h.Coordinator.Handle(r.Context(), &req)
	if !resp.Success {
		emit(models.StreamFrame{Type: "error", Error: resp.Error, Metadata: resp.Metadata})
		emit(models.StreamFrame{Type: "done", Metadata: resp.Metadata})
		return
	}

	for _, msg := range resp.Messages {
		runes := []rune(msg)
		for i := 0; i < len(runes); i += streamChunkSize {
			end := i + streamChunkSize
			if end > len(runes) {
				end = len(runes)
			}
			emit(models.StreamFrame{Type: "text", Text: string(runes[i:end])})
			time.Sleep(streamFrameDelay)
		}
	}

	for i := range resp.Actions {
		emit(models.StreamFrame{Type: "action", Action: &resp.Actions[i]})
	}

	if chain := h.Coordinator.Recorder().Get(resp.ID); chain != nil {
		emit(models.StreamFrame{Type: "provenance", Provenance: chain.Entries})
	}

	emit(models.StreamFrame{Type: "done", Metadata: resp.Metadata})
}

// RunAgent invokes exactly one named agent, bypassing selection and
// planning.
func (h *Handlers) RunAgent(w http.ResponseWriter, r *http.Request) {
	var req models.AgentRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.AgentID = chi.URLParam(r, "agentId")
	if req.UserID == "" {
		req.UserID = middleware.GetUserID(r.Context())
	}

	resp := h.Coordinator.RunAgent(r.Context(), &req)
	respondJSON(w, http.StatusOK, resp)
}

// ── Agents ───────────────────────────────────────────────────

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	descriptors := h.Coordinator.Registry().Descriptors()
	if descriptors == nil {
		descriptors = []models.AgentDescriptor{}
	}
	respondJSON(w, http.StatusOK, descriptors)
}

// ── Provenance ───────────────────────────────────────────────

func (h *Handlers) GetProvenance(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	chain := h.Coordinator.Recorder().Get(requestID)
	if chain == nil {
		respondError(w, http.StatusNotFound, "provenance not found: "+requestID)
		return
	}
	respondJSON(w, http.StatusOK, chain)
}

func (h *Handlers) RecentProvenance(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	if agent := r.URL.Query().Get("agent"); agent != "" {
		respondJSON(w, http.StatusOK, h.Coordinator.Recorder().SearchByAgent(agent, limit))
		return
	}
	respondJSON(w, http.StatusOK, h.Coordinator.Recorder().Recent(limit))
}

func (h *Handlers) ProvenanceStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Coordinator.Recorder().Stats())
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
