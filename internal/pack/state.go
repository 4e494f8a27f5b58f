package pack

// PluginState represents where a plugin sits in a pipeline run.
type PluginState int

// Pipeline states.
const (
	// StatePending - Plugin has not been processed yet.
	StatePending PluginState = iota

	// StateCloned - Plugin repository exists on disk.
	StateCloned

	// StateResolved - Head and target commits are known.
	StateResolved

	// StateCheckedOut - Plugin working tree is at the target commit.
	StateCheckedOut

	// StateDone - Pipeline finished for this plugin.
	StateDone

	// StateFailed - Plugin errored; absorbing, no further stages run.
	StateFailed
)

// String returns a string representation of the state.
func (s PluginState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCloned:
		return "cloned"
	case StateResolved:
		return "resolved"
	case StateCheckedOut:
		return "checked-out"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if no further pipeline stages apply.
func (s PluginState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
