package admin

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wagiedev/voice-tool-router/internal/flags"
	"github.com/wagiedev/voice-tool-router/internal/protocol"
)

type handler struct {
	log    *slog.Logger
	engine *flags.Engine
	tools  ToolLister
	state  StateFunc
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Connection string `json:"connection,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	flags.Status
	Connection string `json:"connection,omitempty"`
}

// ToolStatus is one entry of GET /tools.
type ToolStatus struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    flags.Category `json:"category"`
	NewPath     bool           `json:"newPath"`
}

// ExecutionsResponse is returned by GET /executions/{path}. Next is the
// cursor to pass as ?since on the following poll.
type ExecutionsResponse struct {
	Path       flags.Path            `json:"path"`
	Executions []flags.ToolExecution `json:"executions"`
	Next       int64                 `json:"next"`
}

// StateRequest is the body of PUT /state.
type StateRequest struct {
	State string `json:"state"`
}

// RollbackRequest is the body of POST /rollback.
type RollbackRequest struct {
	Reason string `json:"reason"`
}

func (h *handler) connection() (protocol.ConnectionState, bool) {
	if h.state == nil {
		return protocol.ConnectionState{}, false
	}

	return h.state(), true
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok"}

	if st, ok := h.connection(); ok {
		resp.Connection = st.String()
		if !st.IsReady() {
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)

			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: h.engine.Snapshot()}

	if st, ok := h.connection(); ok {
		resp.Connection = st.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listTools(w http.ResponseWriter, r *http.Request) {
	if h.tools == nil {
		writeJSON(w, http.StatusOK, []ToolStatus{})

		return
	}

	descs, err := h.tools.ListTools(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())

		return
	}

	out := make([]ToolStatus, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolStatus{
			Name:        d.Name,
			Description: d.Description,
			Category:    h.engine.CategoryFor(d.Name),
			NewPath:     h.engine.ShouldUseNewPath(d.Name),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *handler) executions(w http.ResponseWriter, r *http.Request) {
	path, err := flags.ParsePath(chi.URLParam(r, "path"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())

		return
	}

	var since int64

	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || since < 0 {
			writeError(w, http.StatusBadRequest, "since must be a non-negative integer")

			return
		}
	}

	items, next := h.engine.ExecutionsSince(path, since)
	if items == nil {
		items = []flags.ToolExecution{}
	}

	writeJSON(w, http.StatusOK, ExecutionsResponse{Path: path, Executions: items, Next: next})
}

func (h *handler) setState(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())

		return
	}

	st, err := flags.ParseMigrationState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	if err := h.engine.SetMigrationState(st); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) enableCategory(w http.ResponseWriter, r *http.Request) {
	h.toggleCategory(w, r, h.engine.EnableCategory)
}

func (h *handler) disableCategory(w http.ResponseWriter, r *http.Request) {
	h.toggleCategory(w, r, h.engine.DisableCategory)
}

func (h *handler) toggleCategory(w http.ResponseWriter, r *http.Request, apply func(flags.Category) error) {
	c := flags.Category(chi.URLParam(r, "category"))
	if !c.Valid() {
		writeError(w, http.StatusNotFound, "unknown category "+strconv.Quote(string(c)))

		return
	}

	if err := apply(c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) enableAll(w http.ResponseWriter, _ *http.Request) {
	h.engine.EnableAll()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) disableAll(w http.ResponseWriter, _ *http.Request) {
	h.engine.DisableAll()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) rollback(w http.ResponseWriter, r *http.Request) {
	var req RollbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())

		return
	}

	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")

		return
	}

	h.log.Warn("Emergency rollback requested", "reason", req.Reason, "request_id", GetRequestID(r.Context()))
	h.engine.EmergencyRollback(req.Reason)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *handler) resetCounters(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	h.engine.ResetCounters(tool)
	w.WriteHeader(http.StatusNoContent)
}
