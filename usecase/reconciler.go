package usecase

import (
	"sort"
	"sync"

	"tracker/logging"
	"tracker/model"
	"tracker/utils"

	"github.com/sirupsen/logrus"
)

// Reconciler is a session's view of the three collections. It is only written
// by store subscriptions, each of which replaces one collection wholesale.
type Reconciler struct {
	mu        sync.RWMutex
	projects  []model.Project
	tasks     []model.Task
	reminders []model.Reminder
	closed    bool

	hub   *EventHub
	clock utils.Clock
	log   *logrus.Entry
}

func NewReconciler(userID string, hub *EventHub, clock utils.Clock) *Reconciler {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &Reconciler{
		projects:  []model.Project{},
		tasks:     []model.Task{},
		reminders: []model.Reminder{},
		hub:       hub,
		clock:     clock,
		log:       logging.For("reconciler").WithField("user_id", userID),
	}
}

// Replace overwrites the snapshot's collection. Snapshots arriving after Close
// are ignored.
func (r *Reconciler) Replace(snap model.Snapshot) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.WithField("kind", snap.Kind).Debug("Dropping snapshot for closed session")
		return
	}
	switch snap.Kind {
	case model.KindProjects:
		r.projects = append([]model.Project{}, snap.Projects...)
	case model.KindTasks:
		r.tasks = append([]model.Task{}, snap.Tasks...)
	case model.KindReminders:
		r.reminders = append([]model.Reminder{}, snap.Reminders...)
	default:
		r.mu.Unlock()
		r.log.WithField("kind", snap.Kind).Warn("Ignoring snapshot of unknown collection")
		return
	}
	r.mu.Unlock()

	utils.TrackSnapshot(string(snap.Kind))
	if r.hub != nil {
		r.hub.Publish(Event{Type: EventSnapshot, Data: snap, At: r.clock.Now()})
	}
}

func (r *Reconciler) Projects() []model.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Project{}, r.projects...)
}

func (r *Reconciler) Tasks() []model.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Task{}, r.tasks...)
}

func (r *Reconciler) Reminders() []model.Reminder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Reminder{}, r.reminders...)
}

// Close clears the cache and stops accepting snapshots.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.projects = []model.Project{}
	r.tasks = []model.Task{}
	r.reminders = []model.Reminder{}
}

// Dashboard derives every view from the cached collections.
func (r *Reconciler) Dashboard(filter model.DashboardFilter) model.Dashboard {
	projects := r.Projects()
	tasks := r.Tasks()
	reminders := r.Reminders()
	now := r.clock.Now()

	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	d := model.Dashboard{
		Projects:    []model.ProjectSummary{},
		Tasks:       []model.TaskView{},
		Reminders:   []model.ReminderView{},
		GeneratedAt: now,
	}

	d.Stats.TotalProjects = len(projects)
	d.Stats.TotalTasks = len(tasks)
	for _, p := range projects {
		if p.Status == model.ProjectActive {
			d.Stats.ActiveProjects++
		}
	}
	for _, t := range tasks {
		if t.Status == model.TaskCompleted {
			d.Stats.CompletedTasks++
		}
	}

	for _, p := range projects {
		if filter.ProjectStatus != "" && p.Status != filter.ProjectStatus {
			continue
		}
		summary := model.ProjectSummary{Project: p}
		for _, t := range tasks {
			if t.ProjectID != p.ID {
				continue
			}
			summary.TotalTasks++
			if t.Status == model.TaskCompleted {
				summary.CompletedTasks++
			}
		}
		d.Projects = append(d.Projects, summary)
	}

	for _, t := range tasks {
		if filter.TaskStatus != "" && t.Status != filter.TaskStatus {
			continue
		}
		if filter.TaskProjectID != "" && t.ProjectID != filter.TaskProjectID {
			continue
		}
		d.Tasks = append(d.Tasks, model.TaskView{
			Task:        t,
			ProjectName: names[t.ProjectID],
			Overdue:     t.Overdue(now),
		})
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].DateTime.Before(reminders[j].DateTime)
	})
	for _, rem := range reminders {
		d.Reminders = append(d.Reminders, model.ReminderView{
			Reminder:    rem,
			ProjectName: names[rem.ProjectID],
			Overdue:     rem.Overdue(now),
			Upcoming:    rem.Upcoming(now),
		})
	}

	return d
}
