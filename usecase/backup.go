package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tracker/model"
	"tracker/utils"

	"github.com/xeipuuv/gojsonschema"
)

const backupSchema = `{
  "type": "object",
  "properties": {
    "projects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string", "minLength": 1},
          "url": {"type": "string"},
          "description": {"type": "string"},
          "status": {"enum": ["active", "on-hold", "completed"]},
          "priority": {"enum": ["low", "medium", "high"]},
          "createdAt": {"type": "string", "format": "date-time"},
          "updatedAt": {"type": "string", "format": "date-time"}
        }
      }
    },
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string", "minLength": 1},
          "projectId": {"type": "string"},
          "description": {"type": "string"},
          "status": {"enum": ["pending", "in-progress", "completed"]},
          "priority": {"enum": ["low", "medium", "high"]},
          "dueDate": {"type": "string"},
          "createdAt": {"type": "string", "format": "date-time"},
          "updatedAt": {"type": "string", "format": "date-time"}
        }
      }
    },
    "reminders": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "dateTime"],
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "dateTime": {"type": "string", "format": "date-time"},
          "projectId": {"type": "string"},
          "notified": {"type": "boolean"},
          "createdAt": {"type": "string", "format": "date-time"},
          "updatedAt": {"type": "string", "format": "date-time"}
        }
      }
    },
    "exportDate": {"type": "string"}
  }
}`

var backupSchemaLoader = gojsonschema.NewStringLoader(backupSchema)

// parseBackup checks data against the backup schema and decodes it. Missing
// collections decode as empty.
func parseBackup(data []byte) (*model.Backup, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &model.ImportFormatError{Err: errors.New("file is empty")}
	}

	schema, err := gojsonschema.NewSchema(backupSchemaLoader)
	if err != nil {
		return nil, fmt.Errorf("backup schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &model.ImportFormatError{Err: err}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, &model.ImportFormatError{Err: errors.New(strings.Join(msgs, "; "))}
	}

	var backup model.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, &model.ImportFormatError{Err: err}
	}
	if backup.Projects == nil {
		backup.Projects = []model.Project{}
	}
	if backup.Tasks == nil {
		backup.Tasks = []model.Task{}
	}
	if backup.Reminders == nil {
		backup.Reminders = []model.Reminder{}
	}
	return &backup, nil
}

// prepareBackup trims names and fills identifiers, defaults and timestamps in
// place. Supplied identifiers are kept; a repeated identifier within one
// collection rejects the file.
func prepareBackup(b *model.Backup, now time.Time) error {
	seen := map[string]bool{}
	for i := range b.Projects {
		p := &b.Projects[i]
		p.Name = strings.TrimSpace(p.Name)
		if err := assignID(&p.ID, seen, model.KindProjects); err != nil {
			return err
		}
		if p.Status == "" {
			p.Status = model.ProjectActive
		}
		if p.Priority == "" {
			p.Priority = model.PriorityMedium
		}
		if url, err := utils.NormalizeURL(p.URL); err == nil {
			p.URL = url
		}
		stamp(&p.CreatedAt, &p.UpdatedAt, now)
		if err := utils.ValidateStruct(p); err != nil {
			return &model.ImportFormatError{Err: fmt.Errorf("project %d: %w", i, err)}
		}
	}

	seen = map[string]bool{}
	for i := range b.Tasks {
		t := &b.Tasks[i]
		t.Title = strings.TrimSpace(t.Title)
		if err := assignID(&t.ID, seen, model.KindTasks); err != nil {
			return err
		}
		if t.Status == "" {
			t.Status = model.TaskPending
		}
		if t.Priority == "" {
			t.Priority = model.PriorityMedium
		}
		stamp(&t.CreatedAt, &t.UpdatedAt, now)
		if err := utils.ValidateStruct(t); err != nil {
			return &model.ImportFormatError{Err: fmt.Errorf("task %d: %w", i, err)}
		}
	}

	seen = map[string]bool{}
	for i := range b.Reminders {
		r := &b.Reminders[i]
		r.Title = strings.TrimSpace(r.Title)
		if err := assignID(&r.ID, seen, model.KindReminders); err != nil {
			return err
		}
		stamp(&r.CreatedAt, &r.UpdatedAt, now)
		if err := utils.ValidateStruct(r); err != nil {
			return &model.ImportFormatError{Err: fmt.Errorf("reminder %d: %w", i, err)}
		}
	}
	return nil
}

func assignID(id *string, seen map[string]bool, kind model.Kind) error {
	if *id == "" {
		*id = utils.NewID()
	}
	if seen[*id] {
		return &model.ImportFormatError{Err: fmt.Errorf("duplicate %s id %q", kind, *id)}
	}
	seen[*id] = true
	return nil
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
