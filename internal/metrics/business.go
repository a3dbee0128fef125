package metrics

import "time"

// IncrementSprintCreated increments sprint creation counter
func (m *Metrics) IncrementSprintCreated() {
	m.safeExecute("IncrementSprintCreated", func() {
		m.SprintCreatedTotal.Inc()
	})
}

// IncrementTaskCreated increments task creation counter
func (m *Metrics) IncrementTaskCreated() {
	m.safeExecute("IncrementTaskCreated", func() {
		m.TaskCreatedTotal.Inc()
	})
}

// IncrementBoardCreated increments board creation counter
func (m *Metrics) IncrementBoardCreated() {
	m.safeExecute("IncrementBoardCreated", func() {
		m.BoardCreatedTotal.Inc()
	})
}

// RecordSprintTransition counts a sprint status change
func (m *Metrics) RecordSprintTransition(from, to, reason string) {
	m.safeExecute("RecordSprintTransition", func() {
		m.SprintTransitionsTotal.WithLabelValues(from, to, reason).Inc()
	})
}

// RecordTaskTransition counts a task status change
func (m *Metrics) RecordTaskTransition(from, to string) {
	m.safeExecute("RecordTaskTransition", func() {
		m.TaskTransitionsTotal.WithLabelValues(from, to).Inc()
	})
}

// RecordPositionUpdates counts rows whose position was rewritten in a container kind ("columns", "tasks")
func (m *Metrics) RecordPositionUpdates(container string, count int) {
	if count <= 0 {
		return
	}
	m.safeExecute("RecordPositionUpdates", func() {
		m.PositionUpdatesTotal.WithLabelValues(container).Add(float64(count))
	})
}

// RecordSweep records one expired sprint sweep run
func (m *Metrics) RecordSweep(result string, completed int, duration time.Duration) {
	m.safeExecute("RecordSweep", func() {
		m.SweepRunsTotal.WithLabelValues(result).Inc()
		m.SweepSprintsCompletedTotal.Add(float64(completed))
		m.SweepDuration.Observe(duration.Seconds())
	})
}

// SetSprintsTotal sets the sprint gauge for one status
func (m *Metrics) SetSprintsTotal(status string, count int64) {
	m.safeExecute("SetSprintsTotal", func() {
		m.SprintsTotal.WithLabelValues(status).Set(float64(count))
	})
}

// SetTasksTotal sets the task gauge for one status
func (m *Metrics) SetTasksTotal(status string, count int64) {
	m.safeExecute("SetTasksTotal", func() {
		m.TasksTotal.WithLabelValues(status).Set(float64(count))
	})
}

// SetBoardsTotal sets total boards gauge
func (m *Metrics) SetBoardsTotal(count int64) {
	m.safeExecute("SetBoardsTotal", func() {
		m.BoardsTotal.Set(float64(count))
	})
}
