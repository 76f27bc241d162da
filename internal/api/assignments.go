package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/engine"
	"github.com/intelliroute/intelliroute/internal/store"
)

type AssignmentsHandler struct {
	store  store.Store
	engine *engine.Engine
}

func NewAssignmentsHandler(s store.Store, eng *engine.Engine) *AssignmentsHandler {
	return &AssignmentsHandler{store: s, engine: eng}
}

// Run triggers one assignment cycle immediately, outside the ticker.
func (h *AssignmentsHandler) Run(w http.ResponseWriter, r *http.Request) {
	committed, err := h.engine.RunCycle(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if committed == nil {
		committed = []*store.Assignment{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignments": committed,
		"count":       len(committed),
	})
}

func (h *AssignmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter store.AssignmentFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.AssignmentStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("engineer_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid engineer_id"})
			return
		}
		filter.EngineerID = &id
	}
	if s := r.URL.Query().Get("query_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid query_id"})
			return
		}
		filter.QueryID = &id
	}

	assignments, err := h.store.ListAssignments(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if assignments == nil {
		assignments = []*store.Assignment{}
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (h *AssignmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}

	a, err := h.store.GetAssignment(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if a == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assignment not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}

	a, err := h.engine.Ledger().Complete(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AssignmentsHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid assignment id"})
		return
	}

	a, err := h.engine.Ledger().EscalateAssignment(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
