package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tracker/config"
	"tracker/logging"
	"tracker/model"
	"tracker/repository"
	"tracker/utils"

	"github.com/sirupsen/logrus"
)

const eventBufferSize = 32

// ActiveSession is everything kept alive between login and logout: the store
// subscriptions, the reconciled cache and the event hub. Scheduler is shared
// by every session of the same identity.
type ActiveSession struct {
	Session   *model.Session
	Cache     *Reconciler
	Hub       *EventHub
	Scheduler *ReminderScheduler

	subs   []repository.Subscription
	cancel context.CancelFunc
}

// identityFeed serves one scheduler for all sessions of an identity. It reads
// reminders from any attached cache and publishes to every attached hub.
type identityFeed struct {
	scheduler *ReminderScheduler

	mu       sync.RWMutex
	sessions []*ActiveSession
}

func (f *identityFeed) Reminders() []model.Reminder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[0].Cache.Reminders()
}

func (f *identityFeed) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, a := range f.sessions {
		a.Hub.Publish(ev)
	}
}

func (f *identityFeed) attach(a *ActiveSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, a)
}

// detach reports how many sessions remain.
func (f *identityFeed) detach(a *ActiveSession) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sessions {
		if s == a {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			break
		}
	}
	return len(f.sessions)
}

type SessionManager struct {
	store     repository.Store
	entities  *EntityService
	clock     utils.Clock
	reminders config.ReminderConfig
	limits    config.SessionConfig
	log       *logrus.Entry

	mu       sync.RWMutex
	sessions map[string]*ActiveSession
	feeds    map[string]*identityFeed

	reaperMu   sync.Mutex
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

func NewSessionManager(store repository.Store, entities *EntityService, clock utils.Clock, reminders config.ReminderConfig, limits config.SessionConfig) *SessionManager {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &SessionManager{
		store:     store,
		entities:  entities,
		clock:     clock,
		reminders: reminders,
		limits:    limits,
		log:       logging.For("sessions"),
		sessions:  make(map[string]*ActiveSession),
		feeds:     make(map[string]*identityFeed),
	}
}

// Activate subscribes the session to all three collections and attaches it to
// the identity's reminder scheduler, starting the scheduler for the first
// session. A session without a deadline gets one from the configured TTL. On
// failure every subscription opened so far is cancelled.
func (m *SessionManager) Activate(ctx context.Context, session *model.Session) (*ActiveSession, error) {
	if session.ExpiresAt.IsZero() && m.limits.TTL > 0 {
		start := session.CreatedAt
		if start.IsZero() {
			start = m.clock.Now()
		}
		session.ExpiresAt = start.Add(m.limits.TTL)
	}

	hub := NewEventHub(eventBufferSize)
	cache := NewReconciler(session.UserID, hub, m.clock)

	// Subscriptions outlive the login request.
	subCtx, cancel := context.WithCancel(context.Background())
	active := &ActiveSession{
		Session: session,
		Cache:   cache,
		Hub:     hub,
		cancel:  cancel,
	}

	for _, kind := range model.Kinds {
		sub, err := m.store.Subscribe(subCtx, session.UserID, kind, cache.Replace)
		if err != nil {
			active.teardown()
			return nil, &model.StoreError{Op: "subscribe", Kind: kind, Err: err}
		}
		active.subs = append(active.subs, sub)
	}

	m.mu.Lock()
	feed, exists := m.feeds[session.UserID]
	if !exists {
		feed = &identityFeed{}
		feed.scheduler = NewReminderScheduler(session, feed, m.entities, feed, m.clock,
			m.reminders.CheckInterval, m.reminders.Lookahead)
		m.feeds[session.UserID] = feed
	}
	feed.attach(active)
	active.Scheduler = feed.scheduler
	m.sessions[session.SessionID] = active
	count := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		feed.scheduler.Start(context.Background())
	}
	utils.UpdateActiveSessions(float64(count))

	m.log.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"session_id": session.SessionID,
		"expires_at": session.ExpiresAt,
	}).Info("Session activated")
	return active, nil
}

// Get returns a live session. An expired session is torn down on the spot.
func (m *SessionManager) Get(sessionID string) (*ActiveSession, error) {
	m.mu.RLock()
	active, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	if active.Session.Expired(m.clock.Now()) {
		m.Deactivate(sessionID)
		return nil, model.ErrNotAuthenticated
	}
	return active, nil
}

// Deactivate tears a session down, stopping the identity's scheduler when it
// was the last session. It reports false when the session was not active.
func (m *SessionManager) Deactivate(sessionID string) bool {
	m.mu.Lock()
	active, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, sessionID)
	count := len(m.sessions)

	var idle *ReminderScheduler
	if feed, exists := m.feeds[active.Session.UserID]; exists && feed.detach(active) == 0 {
		delete(m.feeds, active.Session.UserID)
		idle = feed.scheduler
	}
	m.mu.Unlock()

	if idle != nil {
		idle.Stop()
	}
	active.teardown()
	utils.UpdateActiveSessions(float64(count))

	m.log.WithFields(logrus.Fields{
		"user_id":    active.Session.UserID,
		"session_id": sessionID,
	}).Info("Session deactivated")
	return true
}

// ReapExpired deactivates every session whose deadline has passed and returns
// how many it removed.
func (m *SessionManager) ReapExpired() int {
	now := m.clock.Now()

	m.mu.RLock()
	var expired []string
	for id, active := range m.sessions {
		if active.Session.Expired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	reaped := 0
	for _, id := range expired {
		if m.Deactivate(id) {
			reaped++
		}
	}
	if reaped > 0 {
		m.log.WithField("count", reaped).Info("Expired sessions removed")
	}
	return reaped
}

// StartReaper removes expired sessions every ReapInterval until Shutdown.
// Starting it twice does nothing.
func (m *SessionManager) StartReaper() {
	if m.limits.ReapInterval <= 0 {
		return
	}

	m.reaperMu.Lock()
	defer m.reaperMu.Unlock()
	if m.stopReaper != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.stopReaper, m.reaperDone = cancel, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.limits.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ReapExpired()
			}
		}
	}()
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops the reaper and deactivates every session.
func (m *SessionManager) Shutdown() {
	m.reaperMu.Lock()
	stop, done := m.stopReaper, m.reaperDone
	m.stopReaper, m.reaperDone = nil, nil
	m.reaperMu.Unlock()
	if stop != nil {
		stop()
		<-done
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Deactivate(id)
	}
}

// teardown cancels every subscription before clearing the cache, so no
// snapshot lands after it returns.
func (a *ActiveSession) teardown() {
	for _, sub := range a.subs {
		sub.Cancel()
	}
	a.subs = nil
	a.cancel()
	a.Cache.Close()
	a.Hub.Close()
}

func (a *ActiveSession) String() string {
	return fmt.Sprintf("session %s (%s)", a.Session.SessionID, a.Session.UserID)
}
