package model

import "time"

// Backup is the import/export document.
type Backup struct {
	Projects   []Project  `json:"projects"`
	Tasks      []Task     `json:"tasks"`
	Reminders  []Reminder `json:"reminders"`
	ExportDate time.Time  `json:"exportDate"`
}
