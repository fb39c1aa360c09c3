package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tracker/config"
	"tracker/model"
	"tracker/testutils"
)

func TestSessionsShareOneScheduler(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)

	abandoned := env.login(t)
	live := env.login(t)
	if abandoned.Scheduler != live.Scheduler {
		t.Fatal("Expected sessions of one identity to share a scheduler")
	}
	// Stop waits for the initial scan, so the ticks below are the only ones.
	live.Scheduler.Stop()

	events, detach := live.Hub.Subscribe()
	defer detach()

	if _, err := env.entities.CreateReminder(ctx, live.Session, model.Reminder{Title: "Standup", DateTime: testStart.Add(3 * time.Minute)}); err != nil {
		t.Fatal(err)
	}

	if fired := abandoned.Scheduler.Tick(ctx); len(fired) != 1 {
		t.Fatalf("Expected one reminder to fire, got %d", len(fired))
	}
	if fired := live.Scheduler.Tick(ctx); len(fired) != 0 {
		t.Errorf("Expected no second notification, got %d", len(fired))
	}

	received := false
	timeout := time.After(time.Second)
	for !received {
		select {
		case ev := <-events:
			if ev.Type != EventReminder {
				continue
			}
			note, ok := ev.Data.(ReminderNotification)
			if !ok || note.Message != "Reminder: Standup" {
				t.Errorf("Unexpected reminder payload: %+v", ev.Data)
			}
			received = true
		case <-timeout:
			t.Fatal("Live session never received the reminder notification")
		}
	}

	stored, err := env.store.ListReminders(ctx, model.LocalUserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || !stored[0].Notified {
		t.Errorf("Expected reminder marked notified once, got %+v", stored)
	}
}

func TestSessionExpiry(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, env *testEnv)
	}{
		{
			name: "Deadline comes from the TTL",
			run: func(t *testing.T, env *testEnv) {
				active := env.login(t)
				want := testStart.Add(testSessionTTL)
				if !active.Session.ExpiresAt.Equal(want) {
					t.Errorf("Expected expiry %v, got %v", want, active.Session.ExpiresAt)
				}
			},
		},
		{
			name: "Expired sessions are reaped",
			run: func(t *testing.T, env *testEnv) {
				first := env.login(t)
				env.login(t)

				if reaped := env.sessions.ReapExpired(); reaped != 0 {
					t.Fatalf("Expected nothing reaped before the deadline, got %d", reaped)
				}

				env.clock.Advance(48 * time.Hour)
				if reaped := env.sessions.ReapExpired(); reaped != 2 {
					t.Errorf("Expected 2 sessions reaped, got %d", reaped)
				}
				if env.sessions.Count() != 0 {
					t.Errorf("Expected no active sessions, got %d", env.sessions.Count())
				}
				if first.Scheduler.State() != SchedulerIdle {
					t.Errorf("Expected scheduler idle, got %s", first.Scheduler.State())
				}
			},
		},
		{
			name: "Expired session is rejected on lookup",
			run: func(t *testing.T, env *testEnv) {
				active := env.login(t)
				env.clock.Advance(testSessionTTL)

				if _, err := env.sessions.Get(active.Session.SessionID); !errors.Is(err, model.ErrNotAuthenticated) {
					t.Errorf("Expected ErrNotAuthenticated, got %v", err)
				}
				if env.sessions.Count() != 0 {
					t.Errorf("Expected the expired session torn down, have %d", env.sessions.Count())
				}
			},
		},
		{
			name: "Scheduler outlives a sibling logout",
			run: func(t *testing.T, env *testEnv) {
				first := env.login(t)
				second := env.login(t)

				env.sessions.Deactivate(first.Session.SessionID)
				if second.Scheduler.State() == SchedulerIdle {
					t.Error("Expected scheduler to keep running for the remaining session")
				}

				env.sessions.Deactivate(second.Session.SessionID)
				if second.Scheduler.State() != SchedulerIdle {
					t.Errorf("Expected scheduler idle after the last logout, got %s", second.Scheduler.State())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newTestEnv(t))
		})
	}
}

func TestSessionReaperRuns(t *testing.T) {
	env := newTestEnv(t)
	sessions := NewSessionManager(env.store, env.entities, env.clock, config.ReminderConfig{
		CheckInterval: time.Hour,
		Lookahead:     5 * time.Minute,
	}, config.SessionConfig{TTL: time.Hour, ReapInterval: 10 * time.Millisecond})
	t.Cleanup(sessions.Shutdown)

	session := &model.Session{SessionID: "reaped", UserID: model.LocalUserID, CreatedAt: testStart}
	if _, err := sessions.Activate(testContext(t), session); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	sessions.StartReaper()
	sessions.StartReaper()
	env.clock.Advance(2 * time.Hour)

	if !testutils.WaitFor(t, 2*time.Second, func() bool { return sessions.Count() == 0 }) {
		t.Errorf("Expected the reaper to remove the expired session, have %d", sessions.Count())
	}
}

func TestConcurrentEditsFromTwoSessionsMerge(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	laptop := env.login(t)
	phone := env.login(t)

	task, err := env.entities.CreateTask(ctx, laptop.Session, model.Task{Title: "Design"})
	if err != nil {
		t.Fatal(err)
	}

	inProgress := model.TaskInProgress
	high := model.PriorityHigh
	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		errs <- env.entities.UpdateTask(ctx, laptop.Session, task.ID, model.TaskPatch{Status: &inProgress})
	}()
	go func() {
		defer wg.Done()
		<-start
		errs <- env.entities.UpdateTask(ctx, phone.Session, task.ID, model.TaskPatch{Priority: &high})
	}()
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
	}

	stored, err := env.store.ListTasks(ctx, model.LocalUserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].Status != model.TaskInProgress || stored[0].Priority != model.PriorityHigh {
		t.Errorf("Expected both edits stored, got %+v", stored)
	}

	for name, active := range map[string]*ActiveSession{"laptop": laptop, "phone": phone} {
		tasks := active.Cache.Tasks()
		if len(tasks) != 1 {
			t.Fatalf("%s: expected 1 task, got %d", name, len(tasks))
		}
		if tasks[0].Status != model.TaskInProgress || tasks[0].Priority != model.PriorityHigh {
			t.Errorf("%s: expected both edits in the cache, got status=%s priority=%s",
				name, tasks[0].Status, tasks[0].Priority)
		}
	}
}
