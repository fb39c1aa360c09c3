package model

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// DueDateLayout is the calendar-date format of Task.DueDate.
const DueDateLayout = "2006-01-02"

type Task struct {
	ID          string     `bson:"id" json:"id"`
	UserID      string     `bson:"user_id" json:"-"`
	Title       string     `bson:"title" json:"title" validate:"required"`
	ProjectID   string     `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	Status      TaskStatus `bson:"status" json:"status" validate:"required,oneof=pending in-progress completed"`
	Priority    Priority   `bson:"priority" json:"priority" validate:"required,oneof=low medium high"`
	DueDate     string     `bson:"due_date,omitempty" json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

func (t Task) EntityID() string { return t.ID }

// Overdue reports whether the due date has passed and the task is still open.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == "" || t.Status == TaskCompleted {
		return false
	}
	due, err := time.Parse(DueDateLayout, t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(now)
}

type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	ProjectID   *string     `json:"projectId,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	DueDate     *string     `json:"dueDate,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.ProjectID == nil && p.Description == nil &&
		p.Status == nil && p.Priority == nil && p.DueDate == nil
}

func (p TaskPatch) Apply(dst *Task) {
	if p.Title != nil {
		dst.Title = *p.Title
	}
	if p.ProjectID != nil {
		dst.ProjectID = *p.ProjectID
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.Status != nil {
		dst.Status = *p.Status
	}
	if p.Priority != nil {
		dst.Priority = *p.Priority
	}
	if p.DueDate != nil {
		dst.DueDate = *p.DueDate
	}
}
