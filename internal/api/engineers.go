package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/intelliroute/intelliroute/internal/store"
)

type EngineersHandler struct {
	store store.Store
}

func NewEngineersHandler(s store.Store) *EngineersHandler {
	return &EngineersHandler{store: s}
}

type CreateEngineerRequest struct {
	Name        string   `json:"name"`
	Designation string   `json:"designation"`
	Capacity    int      `json:"capacity"`
	Skills      []string `json:"skills,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
}

func (h *EngineersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEngineerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	designation, err := store.ParseDesignation(req.Designation)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Capacity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "capacity must be positive"})
		return
	}

	e := &store.Engineer{
		Name:        req.Name,
		Designation: designation,
		Capacity:    req.Capacity,
		Available:   true,
		Skills:      req.Skills,
		Timezone:    req.Timezone,
	}
	if err := h.store.CreateEngineer(r.Context(), e); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *EngineersHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.EngineerFilter{
		Skill: r.URL.Query().Get("skill"),
	}
	if s := r.URL.Query().Get("available"); s != "" {
		available := s == "true"
		filter.Available = &available
	}

	engineers, err := h.store.ListEngineers(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if engineers == nil {
		engineers = []*store.Engineer{}
	}
	writeJSON(w, http.StatusOK, engineers)
}

func (h *EngineersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid engineer id"})
		return
	}

	e, err := h.store.GetEngineer(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if e == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "engineer not found"})
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type UpdateEngineerRequest struct {
	Available   *bool     `json:"available,omitempty"`
	Capacity    *int      `json:"capacity,omitempty"`
	Designation *string   `json:"designation,omitempty"`
	Skills      *[]string `json:"skills,omitempty"`
	Timezone    *string   `json:"timezone,omitempty"`
}

// Update patches the mutable engineer fields. Load is never patched directly;
// it only moves through assignment commits and releases.
func (h *EngineersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid engineer id"})
		return
	}

	e, err := h.store.GetEngineer(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if e == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "engineer not found"})
		return
	}

	var req UpdateEngineerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Available != nil {
		e.Available = *req.Available
	}
	if req.Capacity != nil {
		if *req.Capacity < e.CurrentLoad {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "capacity below current load"})
			return
		}
		e.Capacity = *req.Capacity
	}
	if req.Designation != nil {
		designation, err := store.ParseDesignation(*req.Designation)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		e.Designation = designation
	}
	if req.Skills != nil {
		e.Skills = *req.Skills
	}
	if req.Timezone != nil {
		e.Timezone = *req.Timezone
	}

	if err := h.store.UpdateEngineer(r.Context(), e); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, e)
}
