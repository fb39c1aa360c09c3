package usecase

import (
	"context"
	"sync"
	"time"

	"tracker/logging"
	"tracker/model"
	"tracker/utils"

	"github.com/sirupsen/logrus"
)

type SchedulerState int

const (
	SchedulerIdle SchedulerState = iota
	SchedulerArmed
	SchedulerFiring
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "idle"
	case SchedulerArmed:
		return "armed"
	case SchedulerFiring:
		return "firing"
	}
	return "unknown"
}

type reminderSource interface {
	Reminders() []model.Reminder
}

type reminderMarker interface {
	MarkReminderNotified(ctx context.Context, session *model.Session, id string) error
}

type eventPublisher interface {
	Publish(ev Event)
}

// ReminderNotification is the payload of a reminder event.
type ReminderNotification struct {
	Reminder model.Reminder `json:"reminder"`
	Message  string         `json:"message"`
}

// ReminderScheduler periodically fires reminders falling inside the lookahead
// window and marks each one notified. There is one scheduler per identity, so
// a reminder fires at most once even if the notified flag has not yet come
// back from the store.
type ReminderScheduler struct {
	session   *model.Session
	source    reminderSource
	marker    reminderMarker
	events    eventPublisher
	clock     utils.Clock
	interval  time.Duration
	lookahead time.Duration
	log       *logrus.Entry

	mu     sync.Mutex
	state  SchedulerState
	fired  map[string]bool
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReminderScheduler(session *model.Session, source reminderSource, marker reminderMarker, events eventPublisher, clock utils.Clock, interval, lookahead time.Duration) *ReminderScheduler {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &ReminderScheduler{
		session:   session,
		source:    source,
		marker:    marker,
		events:    events,
		clock:     clock,
		interval:  interval,
		lookahead: lookahead,
		log:       logging.For("scheduler").WithField("user_id", session.UserID),
		fired:     make(map[string]bool),
	}
}

func (s *ReminderScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start arms the scheduler and runs the first check immediately. Starting an
// armed scheduler does nothing.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != SchedulerIdle {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.state = SchedulerArmed
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"interval":  s.interval,
		"lookahead": s.lookahead,
	}).Info("Reminder scheduler started")

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop disarms the scheduler and waits for an in-flight check to finish.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	if s.state == SchedulerIdle {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.state = SchedulerIdle
	s.mu.Unlock()
	s.log.Info("Reminder scheduler stopped")
}

// Tick runs one due-check and returns the reminders it fired.
func (s *ReminderScheduler) Tick(ctx context.Context) []model.Reminder {
	now := s.clock.Now()
	reminders := s.source.Reminders()

	s.mu.Lock()
	prev := s.state
	s.state = SchedulerFiring

	present := make(map[string]bool, len(reminders))
	var due []model.Reminder
	for _, r := range reminders {
		present[r.ID] = !r.Notified
		if s.fired[r.ID] || !r.DueWithin(now, s.lookahead) {
			continue
		}
		s.fired[r.ID] = true
		due = append(due, r)
	}
	// Forget reminders that are gone or whose flag has come back set.
	for id := range s.fired {
		if pending, ok := present[id]; !ok || !pending {
			delete(s.fired, id)
		}
	}
	s.mu.Unlock()

	for _, r := range due {
		s.fire(ctx, r)
	}

	s.mu.Lock()
	if s.state == SchedulerFiring {
		s.state = prev
	}
	s.mu.Unlock()
	return due
}

func (s *ReminderScheduler) fire(ctx context.Context, r model.Reminder) {
	utils.TrackReminderFired()
	log := s.log.WithFields(logrus.Fields{
		"reminder_id": r.ID,
		"date_time":   r.DateTime,
	})
	log.Info("Reminder due")

	if s.events != nil {
		s.events.Publish(Event{
			Type: EventReminder,
			Data: ReminderNotification{Reminder: r, Message: "Reminder: " + r.Title},
			At:   s.clock.Now(),
		})
	}

	if err := s.marker.MarkReminderNotified(ctx, s.session, r.ID); err != nil {
		log.WithError(err).Warn("Failed to mark reminder notified")
	}
}
