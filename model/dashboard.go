package model

import "time"

type DashboardStats struct {
	TotalProjects  int `json:"totalProjects"`
	ActiveProjects int `json:"activeProjects"`
	TotalTasks     int `json:"totalTasks"`
	CompletedTasks int `json:"completedTasks"`
}

type ProjectSummary struct {
	Project
	CompletedTasks int `json:"completedTasks"`
	TotalTasks     int `json:"totalTasks"`
}

type TaskView struct {
	Task
	ProjectName string `json:"projectName,omitempty"`
	Overdue     bool   `json:"overdue"`
}

type ReminderView struct {
	Reminder
	ProjectName string `json:"projectName,omitempty"`
	Overdue     bool   `json:"overdue"`
	Upcoming    bool   `json:"upcoming"`
}

// Dashboard is everything a view derives from the three cached collections.
type Dashboard struct {
	Stats       DashboardStats   `json:"stats"`
	Projects    []ProjectSummary `json:"projects"`
	Tasks       []TaskView       `json:"tasks"`
	Reminders   []ReminderView   `json:"reminders"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// DashboardFilter narrows the project and task lists. Empty fields match everything.
type DashboardFilter struct {
	ProjectStatus ProjectStatus `form:"projectStatus" json:"projectStatus" validate:"omitempty,oneof=active on-hold completed"`
	TaskStatus    TaskStatus    `form:"taskStatus" json:"taskStatus" validate:"omitempty,oneof=pending in-progress completed"`
	TaskProjectID string        `form:"projectId" json:"projectId"`
}
