package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/engine"
	"github.com/intelliroute/intelliroute/internal/store"
)

type QueriesHandler struct {
	store  store.Store
	engine *engine.Engine
}

func NewQueriesHandler(s store.Store, eng *engine.Engine) *QueriesHandler {
	return &QueriesHandler{store: s, engine: eng}
}

type CreateQueryRequest struct {
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Domain      string   `json:"domain,omitempty"`
}

func (h *QueriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	q := &store.SupportQuery{
		Description: req.Description,
		Priority:    store.Priority(req.Priority),
		Tags:        req.Tags,
		Domain:      req.Domain,
	}
	if err := h.engine.SubmitQuery(r.Context(), q); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *QueriesHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.QueryFilter{
		Domain: r.URL.Query().Get("domain"),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.QueryStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("priority"); s != "" {
		priority := store.Priority(s)
		filter.Priority = &priority
	}

	queries, err := h.store.ListQueries(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if queries == nil {
		queries = []*store.SupportQuery{}
	}
	writeJSON(w, http.StatusOK, queries)
}

func (h *QueriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid query id"})
		return
	}

	q, err := h.store.GetQuery(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if q == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "query not found"})
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QueriesHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid query id"})
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body.Reason == "" {
		body.Reason = "manual escalation"
	}

	q, err := h.engine.Ledger().EscalateQuery(r.Context(), id, body.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
