package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Strob0t/CareerForge/internal/adapter/ws"
	"github.com/Strob0t/CareerForge/internal/domain/roadmap"
	"github.com/Strob0t/CareerForge/internal/domain/user"
	"github.com/Strob0t/CareerForge/internal/middleware"
	"github.com/Strob0t/CareerForge/internal/port/messagequeue"
	"github.com/Strob0t/CareerForge/internal/resilience"
	"github.com/Strob0t/CareerForge/internal/service"
)

const defaultBodyLimit = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	Roadmaps *service.RoadmapService
	Profiles *service.ProfileService
	Insights *service.InsightService
	Hub      *ws.Hub

	// Readiness dependencies; Queue and Breaker are optional.
	Store   Pinger
	Queue   messagequeue.Queue
	Breaker *resilience.Breaker

	BodyLimit int64
}

func (h *Handlers) bodyLimit() int64 {
	if h.BodyLimit > 0 {
		return h.BodyLimit
	}
	return defaultBodyLimit
}

// --- Roadmaps ---

// GenerateRoadmap handles POST /api/v1/roadmaps/generate.
func (h *Handlers) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[roadmap.GenerateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	rm, err := h.Roadmaps.Generate(r.Context(), req)
	if err != nil {
		writeGenerateError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

type generateStepsRequest struct {
	Topic string `json:"topic"`
}

// GenerateSteps handles POST /api/v1/roadmaps/steps/generate.
func (h *Handlers) GenerateSteps(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[generateStepsRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if !requireField(w, req.Topic, "topic") {
		return
	}
	steps, err := h.Roadmaps.GenerateSteps(r.Context(), req.Topic)
	if err != nil {
		writeGenerateError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

// CreateRoadmap handles POST /api/v1/roadmaps.
func (h *Handlers) CreateRoadmap(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[roadmap.CreateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	rm, err := h.Roadmaps.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

// ListRoadmaps handles GET /api/v1/roadmaps.
func (h *Handlers) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	list, err := h.Roadmaps.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "roadmaps not found")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetRoadmap handles GET /api/v1/roadmaps/{id}.
func (h *Handlers) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.Roadmaps.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "roadmap not found")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// DeleteRoadmap handles DELETE /api/v1/roadmaps/{id}.
func (h *Handlers) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	if err := h.Roadmaps.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "roadmap not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleTaskRequest struct {
	Completed *bool `json:"completed"`
}

// ToggleTask handles PUT /api/v1/roadmaps/{id}/tasks/{taskId}.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[toggleTaskRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if req.Completed == nil {
		writeError(w, http.StatusBadRequest, "completed is required")
		return
	}
	st, err := h.Roadmaps.ToggleTask(r.Context(), urlParam(r, "id"), urlParam(r, "taskId"), *req.Completed)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Profile ---

// GetProfile handles GET /api/v1/profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Get(r.Context())
	if err != nil {
		writeDomainError(w, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/v1/profile.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	p, err := h.Profiles.Update(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Insights ---

// GetInsight handles GET /api/v1/insights/{industry}.
func (h *Handlers) GetInsight(w http.ResponseWriter, r *http.Request) {
	in, err := h.Insights.Get(r.Context(), urlParam(r, "industry"))
	if err != nil {
		writeDomainError(w, err, "insight not found")
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// --- Realtime ---

// ServeWS handles GET /ws, subscribing the caller to their own events.
func (h *Handlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.Hub.Serve(w, r, userID)
}

// --- Health ---

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	NATS     string `json:"nats,omitempty"`
	LLM      string `json:"llm,omitempty"`
}

// Health handles GET /health. It reports liveness only.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{Status: "ok"})
}

// Ready handles GET /health/ready. The database must answer; NATS is
// reported but optional; an open LLM breaker is reported as degraded.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st := healthStatus{Status: "ok", Database: "ok"}
	code := http.StatusOK
	if err := h.Store.Ping(ctx); err != nil {
		st.Status, st.Database, code = "unavailable", "down", http.StatusServiceUnavailable
	}
	switch {
	case h.Queue == nil:
		st.NATS = "disabled"
	case h.Queue.IsConnected():
		st.NATS = "ok"
	default:
		st.NATS = "down"
	}
	if h.Breaker != nil {
		st.LLM = string(h.Breaker.State())
		if h.Breaker.State() == resilience.StateOpen && code == http.StatusOK {
			st.Status = "degraded"
		}
	}
	writeJSON(w, code, st)
}
