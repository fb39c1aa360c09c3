package dto

import (
	"time"

	"tracker/model"
)

type CreateProjectRequest struct {
	Name        string              `json:"name"`
	URL         string              `json:"url"`
	Description string              `json:"description"`
	Status      model.ProjectStatus `json:"status"`
	Priority    model.Priority      `json:"priority"`
}

func (r CreateProjectRequest) ToModel() model.Project {
	return model.Project{
		Name:        r.Name,
		URL:         r.URL,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
	}
}

type CreateTaskRequest struct {
	Title       string           `json:"title"`
	ProjectID   string           `json:"projectId"`
	Description string           `json:"description"`
	Status      model.TaskStatus `json:"status"`
	Priority    model.Priority   `json:"priority"`
	DueDate     string           `json:"dueDate"`
}

func (r CreateTaskRequest) ToModel() model.Task {
	return model.Task{
		Title:       r.Title,
		ProjectID:   r.ProjectID,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
	}
}

type CreateReminderRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DateTime    time.Time `json:"dateTime"`
	ProjectID   string    `json:"projectId"`
}

func (r CreateReminderRequest) ToModel() model.Reminder {
	return model.Reminder{
		Title:       r.Title,
		Description: r.Description,
		DateTime:    r.DateTime,
		ProjectID:   r.ProjectID,
	}
}

// ImportResponse summarises what a confirmed import replaced.
type ImportResponse struct {
	Projects   int       `json:"projects"`
	Tasks      int       `json:"tasks"`
	Reminders  int       `json:"reminders"`
	ExportDate time.Time `json:"exportDate"`
}

func ToImportResponse(b *model.Backup) ImportResponse {
	return ImportResponse{
		Projects:   len(b.Projects),
		Tasks:      len(b.Tasks),
		Reminders:  len(b.Reminders),
		ExportDate: b.ExportDate,
	}
}

type ThemeRequest struct {
	Theme string `json:"theme" binding:"required"`
}
