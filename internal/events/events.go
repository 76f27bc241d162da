package events

// QueryRequestEvent is an inbound query submission received over the bus.
type QueryRequestEvent struct {
	Description string   `json:"description"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Domain      string   `json:"domain,omitempty"`
}

// AssignmentEvent announces an assignment lifecycle transition.
type AssignmentEvent struct {
	AssignmentID string `json:"assignment_id"`
	QueryID      string `json:"query_id"`
	EngineerID   string `json:"engineer_id"`
	Units        int    `json:"units"`
}

// QueryEscalatedEvent carries the escalation reason alongside the query id.
type QueryEscalatedEvent struct {
	QueryID string `json:"query_id"`
	Reason  string `json:"reason"`
}

// QueryUnmatchedEvent is published when a cycle finds no eligible engineer.
type QueryUnmatchedEvent struct {
	QueryID      string   `json:"query_id"`
	Tags         []string `json:"tags,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	AttemptCount int      `json:"attempt_count"`
}
