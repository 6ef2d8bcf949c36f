package domain

// IterationChange is an optional verbose event describing how a compilation
// start was classified.
type IterationChange struct {
	Type          string `json:"type"` // iteration_change
	SchemaVersion int    `json:"schemaVersion"`
	Iteration     string `json:"iteration"`
	PrevIteration string `json:"prev_iteration,omitempty"`
	Count         int    `json:"count"`
	Reason        string `json:"reason"` // new_pass, continuation, cleared, pruned
	Timestamp     string `json:"timestamp"`
}

const (
	ReasonNewPass      = "new_pass"
	ReasonContinuation = "continuation"
	ReasonCleared      = "cleared"
	ReasonPruned       = "pruned"
)
