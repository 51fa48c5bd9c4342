package agent

// State is the shared mutable state carried through one orchestration run.
// It is created at entry, mutated by each visited node, consumed at
// termination and then discarded; nothing persists across runs.
type State struct {
	Query  string
	Intent Intent
	Answer string
	// Context accumulates agent-specific side artifacts, such as the
	// sub-answers produced inside the reasoning branch.
	Context map[string]string
}

// NewState creates the state for one run.
func NewState(query string) *State {
	return &State{
		Query:   query,
		Context: make(map[string]string),
	}
}
