package store

import (
	"testing"
)

func TestDesignationRanking(t *testing.T) {
	order := []Designation{DesignationJunior, DesignationMid, DesignationSenior, DesignationTechLead}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("expected %s to outrank %s", order[i], order[i-1])
		}
	}
	if Designation("principal").Rank() != 0 {
		t.Error("expected unknown designation to rank 0")
	}
}

func TestParseDesignation(t *testing.T) {
	if _, err := ParseDesignation("senior"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseDesignation("wizard"); err == nil {
		t.Error("expected error for unknown designation")
	}
}

func TestPriorityRanking(t *testing.T) {
	if PriorityP1.Rank() >= PriorityP2.Rank() || PriorityP2.Rank() >= PriorityP3.Rank() {
		t.Error("expected P1 < P2 < P3 in rank order")
	}
	if _, err := ParsePriority("P4"); err == nil {
		t.Error("expected error for unknown priority")
	}
}

func TestQueryStatusValues(t *testing.T) {
	statuses := []QueryStatus{QueryPending, QueryAssigned, QueryResolved, QueryEscalated}
	expected := []string{"pending", "assigned", "resolved", "escalated"}
	for i, s := range statuses {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestFreeCapacity(t *testing.T) {
	e := Engineer{Capacity: 3, CurrentLoad: 2}
	if e.FreeCapacity() != 1 {
		t.Errorf("expected free capacity 1, got %d", e.FreeCapacity())
	}
}
