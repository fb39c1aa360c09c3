package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tracker/logging"
	"tracker/model"
	"tracker/repository"
	"tracker/utils"

	"github.com/sirupsen/logrus"
)

// EntityService validates and stamps user edits before they reach the store.
// Invalid input never touches the store; store failures come back as
// *model.StoreError.
type EntityService struct {
	store repository.Store
	clock utils.Clock
	log   *logrus.Entry
}

func NewEntityService(store repository.Store, clock utils.Clock) *EntityService {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &EntityService{
		store: store,
		clock: clock,
		log:   logging.For("entities"),
	}
}

func requireSession(session *model.Session) error {
	if session == nil || session.UserID == "" {
		return model.ErrNotAuthenticated
	}
	return nil
}

func (svc *EntityService) storeErr(session *model.Session, op string, kind model.Kind, err error) error {
	svc.log.WithFields(logrus.Fields{
		"user_id": session.UserID,
		"op":      op,
		"kind":    kind,
	}).WithError(err).Warn("Store operation failed")
	return &model.StoreError{Op: op, Kind: kind, Err: err}
}

func (svc *EntityService) done(kind model.Kind, op string) {
	utils.TrackEntityOperation(string(kind), op)
}

func normalizeProjectURL(raw string) (string, error) {
	normalized, err := utils.NormalizeURL(raw)
	if err != nil {
		return "", model.NewValidationError("url", "must be a valid URL")
	}
	return normalized, nil
}

func invalidOption(field string, options ...string) error {
	return model.NewValidationError(field, "must be one of: "+strings.Join(options, " "))
}

func validateDueDate(due string) error {
	if due == "" {
		return nil
	}
	if _, err := time.Parse(model.DueDateLayout, due); err != nil {
		return model.NewValidationError("dueDate", "must match the date format "+model.DueDateLayout)
	}
	return nil
}

// Projects

func (svc *EntityService) CreateProject(ctx context.Context, session *model.Session, in model.Project) (*model.Project, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	p := in
	p.Name = strings.TrimSpace(p.Name)
	url, err := normalizeProjectURL(p.URL)
	if err != nil {
		return nil, err
	}
	p.URL = url
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	if p.Priority == "" {
		p.Priority = model.PriorityMedium
	}
	if err := utils.ValidateStruct(p); err != nil {
		return nil, err
	}

	now := svc.clock.Now()
	p.ID = utils.NewID()
	p.UserID = session.UserID
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := svc.store.CreateProject(ctx, session.UserID, p); err != nil {
		return nil, svc.storeErr(session, "create", model.KindProjects, err)
	}
	svc.done(model.KindProjects, "create")
	return &p, nil
}

func (svc *EntityService) UpdateProject(ctx context.Context, session *model.Session, id string, patch model.ProjectPatch) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return model.NewValidationError("", "no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.NewValidationError("name", "is required")
		}
		patch.Name = &name
	}
	if patch.URL != nil {
		url, err := normalizeProjectURL(*patch.URL)
		if err != nil {
			return err
		}
		patch.URL = &url
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return invalidOption("status", "active", "on-hold", "completed")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return invalidOption("priority", "low", "medium", "high")
	}

	if err := svc.store.UpdateProject(ctx, session.UserID, id, patch); err != nil {
		return svc.storeErr(session, "update", model.KindProjects, err)
	}
	svc.done(model.KindProjects, "update")
	return nil
}

// DeleteProject removes the project and all of its tasks. Reminders that
// reference it are kept.
func (svc *EntityService) DeleteProject(ctx context.Context, session *model.Session, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := svc.store.DeleteProject(ctx, session.UserID, id); err != nil {
		return svc.storeErr(session, "delete", model.KindProjects, err)
	}
	svc.done(model.KindProjects, "delete")
	return nil
}

// Tasks

func (svc *EntityService) CreateTask(ctx context.Context, session *model.Session, in model.Task) (*model.Task, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	t := in
	t.Title = strings.TrimSpace(t.Title)
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := utils.ValidateStruct(t); err != nil {
		return nil, err
	}

	now := svc.clock.Now()
	t.ID = utils.NewID()
	t.UserID = session.UserID
	t.CreatedAt = now
	t.UpdatedAt = now

	if err := svc.store.CreateTask(ctx, session.UserID, t); err != nil {
		return nil, svc.storeErr(session, "create", model.KindTasks, err)
	}
	svc.done(model.KindTasks, "create")
	return &t, nil
}

func (svc *EntityService) UpdateTask(ctx context.Context, session *model.Session, id string, patch model.TaskPatch) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return model.NewValidationError("", "no fields to update")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.NewValidationError("title", "is required")
		}
		patch.Title = &title
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return invalidOption("status", "pending", "in-progress", "completed")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return invalidOption("priority", "low", "medium", "high")
	}
	if patch.DueDate != nil {
		if err := validateDueDate(*patch.DueDate); err != nil {
			return err
		}
	}

	if err := svc.store.UpdateTask(ctx, session.UserID, id, patch); err != nil {
		return svc.storeErr(session, "update", model.KindTasks, err)
	}
	svc.done(model.KindTasks, "update")
	return nil
}

func (svc *EntityService) DeleteTask(ctx context.Context, session *model.Session, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := svc.store.DeleteTask(ctx, session.UserID, id); err != nil {
		return svc.storeErr(session, "delete", model.KindTasks, err)
	}
	svc.done(model.KindTasks, "delete")
	return nil
}

// Reminders

func (svc *EntityService) CreateReminder(ctx context.Context, session *model.Session, in model.Reminder) (*model.Reminder, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	r := in
	r.Title = strings.TrimSpace(r.Title)
	if err := utils.ValidateStruct(r); err != nil {
		return nil, err
	}
	if r.DateTime.IsZero() {
		return nil, model.NewValidationError("dateTime", "is required")
	}

	now := svc.clock.Now()
	r.ID = utils.NewID()
	r.UserID = session.UserID
	r.Notified = false
	r.CreatedAt = now
	r.UpdatedAt = now

	if err := svc.store.CreateReminder(ctx, session.UserID, r); err != nil {
		return nil, svc.storeErr(session, "create", model.KindReminders, err)
	}
	svc.done(model.KindReminders, "create")
	return &r, nil
}

// UpdateReminder merges patch into the reminder. Notified can be set but
// never cleared.
func (svc *EntityService) UpdateReminder(ctx context.Context, session *model.Session, id string, patch model.ReminderPatch) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return model.NewValidationError("", "no fields to update")
	}
	if patch.Notified != nil && !*patch.Notified {
		return model.NewValidationError("notified", "cannot be cleared once set")
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.NewValidationError("title", "is required")
		}
		patch.Title = &title
	}
	if patch.DateTime != nil && patch.DateTime.IsZero() {
		return model.NewValidationError("dateTime", "is required")
	}

	if err := svc.store.UpdateReminder(ctx, session.UserID, id, patch); err != nil {
		return svc.storeErr(session, "update", model.KindReminders, err)
	}
	svc.done(model.KindReminders, "update")
	return nil
}

func (svc *EntityService) MarkReminderNotified(ctx context.Context, session *model.Session, id string) error {
	notified := true
	return svc.UpdateReminder(ctx, session, id, model.ReminderPatch{Notified: &notified})
}

func (svc *EntityService) DeleteReminder(ctx context.Context, session *model.Session, id string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := svc.store.DeleteReminder(ctx, session.UserID, id); err != nil {
		return svc.storeErr(session, "delete", model.KindReminders, err)
	}
	svc.done(model.KindReminders, "delete")
	return nil
}

// Export reads all three collections from the store.
func (svc *EntityService) Export(ctx context.Context, session *model.Session) (*model.Backup, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	projects, err := svc.store.ListProjects(ctx, session.UserID)
	if err != nil {
		return nil, svc.storeErr(session, "export", model.KindProjects, err)
	}
	tasks, err := svc.store.ListTasks(ctx, session.UserID)
	if err != nil {
		return nil, svc.storeErr(session, "export", model.KindTasks, err)
	}
	reminders, err := svc.store.ListReminders(ctx, session.UserID)
	if err != nil {
		return nil, svc.storeErr(session, "export", model.KindReminders, err)
	}

	svc.log.WithFields(logrus.Fields{
		"user_id":   session.UserID,
		"projects":  len(projects),
		"tasks":     len(tasks),
		"reminders": len(reminders),
	}).Info("Exported data")

	return &model.Backup{
		Projects:   projects,
		Tasks:      tasks,
		Reminders:  reminders,
		ExportDate: svc.clock.Now(),
	}, nil
}

// Import replaces every collection with the contents of a backup file. The
// file is parsed and checked before confirmation is considered, and nothing
// is written unless confirmed is true.
func (svc *EntityService) Import(ctx context.Context, session *model.Session, data []byte, confirmed bool) (*model.Backup, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}

	backup, err := parseBackup(data)
	if err != nil {
		utils.TrackError("import", "invalid_file")
		return nil, err
	}
	if !confirmed {
		return nil, model.NewValidationError("confirm", "import replaces all existing data and must be confirmed")
	}
	if err := prepareBackup(backup, svc.clock.Now()); err != nil {
		utils.TrackError("import", "invalid_records")
		return nil, err
	}

	if err := svc.store.ReplaceAll(ctx, session.UserID, backup); err != nil {
		return nil, svc.storeErr(session, "import", "", err)
	}

	svc.log.WithFields(logrus.Fields{
		"user_id":   session.UserID,
		"projects":  len(backup.Projects),
		"tasks":     len(backup.Tasks),
		"reminders": len(backup.Reminders),
	}).Info("Imported data")
	utils.TrackEntityOperation("all", "import")
	return backup, nil
}

// ExportFilename is the download name for a backup taken at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("project-manager-backup-%s.json", t.UTC().Format(model.DueDateLayout))
}
