package phantombuster

import "strings"

// State is the local classification of a remote container status
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Terminal reports whether the container will not change state again
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ContainerStatus is the subset of a container fetch the poller relies on
type ContainerStatus struct {
	ID           string
	Status       string
	ExitCode     *int
	EndType      string
	Output       string
	ResultObject string
}

// State maps the platform's status vocabulary onto State
func (s *ContainerStatus) State() State {
	switch strings.ToLower(s.Status) {
	case "finished":
		if s.ExitCode != nil && *s.ExitCode != 0 {
			return StateFailed
		}
		switch strings.ToLower(s.EndType) {
		case "error", "killed", "timeout", "crash":
			return StateFailed
		}
		return StateSucceeded
	case "error", "failed", "killed":
		return StateFailed
	case "starting", "queued", "launching", "":
		return StatePending
	default:
		return StateRunning
	}
}
