package events

const (
	// SubjectQueryRequest accepts inbound query submissions over the bus.
	SubjectQueryRequest = "route.query.request"

	StreamName   = "ROUTING_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func SubjectQueryCreated(queryID string) string   { return "route.query." + queryID + ".created" }
func SubjectQueryAssigned(queryID string) string  { return "route.query." + queryID + ".assigned" }
func SubjectQueryResolved(queryID string) string  { return "route.query." + queryID + ".resolved" }
func SubjectQueryEscalated(queryID string) string { return "route.query." + queryID + ".escalated" }
func SubjectQueryUnmatched(queryID string) string { return "route.query." + queryID + ".unmatched" }

func SubjectAssignmentCreated(id string) string   { return "route.assignment." + id + ".created" }
func SubjectAssignmentCompleted(id string) string { return "route.assignment." + id + ".completed" }
func SubjectAssignmentEscalated(id string) string { return "route.assignment." + id + ".escalated" }
