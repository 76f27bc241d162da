package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intelliroute/intelliroute/internal/store"
)

// TestFullRoutingLifecycle exercises the complete happy path over HTTP:
// register engineer → submit query → run cycle → complete assignment.
func TestFullRoutingLifecycle(t *testing.T) {
	router, ms, _ := setupTestRouter()

	// 1. Register an engineer
	body := `{"name":"Grace","designation":"senior","capacity":5,"skills":["database"]}`
	req := httptest.NewRequest("POST", "/api/v1/engineers", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create engineer: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var grace store.Engineer
	_ = json.NewDecoder(w.Body).Decode(&grace)

	// 2. Submit a query in her domain
	body = `{"description":"replica lag is growing on the primary database","priority":"P2","domain":"database"}`
	req = httptest.NewRequest("POST", "/api/v1/queries", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create query: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created store.SupportQuery
	_ = json.NewDecoder(w.Body).Decode(&created)
	if created.Status != store.QueryPending {
		t.Fatalf("create query: expected pending, got %s", created.Status)
	}
	if created.SLADueAt == nil {
		t.Error("create query: expected SLA deadline stamped")
	}

	// 3. Trigger a cycle
	req = httptest.NewRequest("POST", "/api/v1/assignments/run", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("run cycle: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var cycle struct {
		Assignments []store.Assignment `json:"assignments"`
		Count       int                `json:"count"`
	}
	_ = json.NewDecoder(w.Body).Decode(&cycle)
	if cycle.Count != 1 {
		t.Fatalf("run cycle: expected 1 assignment, got %d", cycle.Count)
	}
	a := cycle.Assignments[0]
	if a.EngineerID != grace.ID {
		t.Errorf("run cycle: assigned to %s, want %s", a.EngineerID, grace.ID)
	}

	// 4. Query is now assigned and scored
	req = httptest.NewRequest("GET", "/api/v1/queries/"+created.ID.String(), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var assigned store.SupportQuery
	_ = json.NewDecoder(w.Body).Decode(&assigned)
	if assigned.Status != store.QueryAssigned {
		t.Errorf("expected assigned, got %s", assigned.Status)
	}
	if assigned.ComplexityScore == nil {
		t.Error("expected complexity score persisted")
	}

	// 5. Complete the assignment
	req = httptest.NewRequest("POST", "/api/v1/assignments/"+a.ID.String()+"/complete", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var completed store.Assignment
	_ = json.NewDecoder(w.Body).Decode(&completed)
	if completed.Status != store.AssignmentCompleted {
		t.Errorf("complete: expected completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Error("complete: expected completed_at to be set")
	}

	// 6. Engineer load is back to zero; query resolved
	req = httptest.NewRequest("GET", "/api/v1/engineers/"+grace.ID.String(), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var final store.Engineer
	_ = json.NewDecoder(w.Body).Decode(&final)
	if final.CurrentLoad != 0 {
		t.Errorf("expected load 0 after completion, got %d", final.CurrentLoad)
	}

	q, _ := ms.GetQuery(req.Context(), created.ID)
	if q.Status != store.QueryResolved {
		t.Errorf("expected query resolved, got %s", q.Status)
	}

	// 7. Completing again conflicts
	req = httptest.NewRequest("POST", "/api/v1/assignments/"+a.ID.String()+"/complete", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("double complete: expected 409, got %d", w.Code)
	}
}

// TestEscalationLifecycle exercises manual escalation of a pending query and
// of an active assignment.
func TestEscalationLifecycle(t *testing.T) {
	router, _, _ := setupTestRouter()

	// Pending query escalates manually.
	body := `{"description":"nobody is around to handle this one"}`
	req := httptest.NewRequest("POST", "/api/v1/queries", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create query: expected 201, got %d", w.Code)
	}
	var q store.SupportQuery
	_ = json.NewDecoder(w.Body).Decode(&q)

	req = httptest.NewRequest("POST", "/api/v1/queries/"+q.ID.String()+"/escalate",
		bytes.NewBufferString(`{"reason":"customer called twice"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("escalate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var escalated store.SupportQuery
	_ = json.NewDecoder(w.Body).Decode(&escalated)
	if escalated.Status != store.QueryEscalated {
		t.Errorf("expected escalated, got %s", escalated.Status)
	}

	// Escalating again conflicts.
	req = httptest.NewRequest("POST", "/api/v1/queries/"+q.ID.String()+"/escalate", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("repeat escalate: expected 409, got %d", w.Code)
	}
}
