package domain

// TransitionKind distinguishes the user-facing status graph from administrative overrides
type TransitionKind string

const (
	TransitionUser     TransitionKind = "USER"
	TransitionOverride TransitionKind = "OVERRIDE"
)

var sprintTransitions = map[SprintStatus][]SprintStatus{
	SprintStatusPlanning: {SprintStatusActive},
	SprintStatusActive:   {SprintStatusCompleted},
}

// Overrides (cancel, expiry) may force any sprint to COMPLETED.
var sprintOverrideTransitions = map[SprintStatus][]SprintStatus{
	SprintStatusPlanning:  {SprintStatusCompleted},
	SprintStatusActive:    {SprintStatusCompleted},
	SprintStatusCompleted: {SprintStatusCompleted},
}

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusDone, TaskStatusTodo},
}

// CanTransitionTo reports whether a sprint may move from s to next through the given path
func (s SprintStatus) CanTransitionTo(next SprintStatus, kind TransitionKind) bool {
	graph := sprintTransitions
	if kind == TransitionOverride {
		graph = sprintOverrideTransitions
	}
	for _, allowed := range graph[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether a task may move from s to next.
// Staying in the same status is always allowed and is treated as a no-op by callers.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return s.IsValid()
	}
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
