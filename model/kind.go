package model

// Kind names one of the three entity collections.
type Kind string

const (
	KindProjects  Kind = "projects"
	KindTasks     Kind = "tasks"
	KindReminders Kind = "reminders"
)

// Kinds lists every collection in a stable order.
var Kinds = []Kind{KindProjects, KindTasks, KindReminders}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Snapshot is the full contents of one collection at a point in time. Only the
// slice matching Kind is populated.
type Snapshot struct {
	Kind      Kind       `json:"kind"`
	Projects  []Project  `json:"projects,omitempty"`
	Tasks     []Task     `json:"tasks,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`
}

func (s Snapshot) Len() int {
	switch s.Kind {
	case KindProjects:
		return len(s.Projects)
	case KindTasks:
		return len(s.Tasks)
	case KindReminders:
		return len(s.Reminders)
	}
	return 0
}
