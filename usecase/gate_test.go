package usecase

import (
	"errors"
	"testing"

	"tracker/model"
)

func TestGateAuthenticate(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T, env *testEnv)
	}{
		{
			name: "First login establishes the password",
			run: func(t *testing.T, env *testEnv) {
				active := env.login(t)
				if active.Session.UserID != model.LocalUserID {
					t.Errorf("Expected local identity, got %q", active.Session.UserID)
				}
				if active.Scheduler.State() == SchedulerIdle {
					t.Error("Expected scheduler started on login")
				}
				if env.sessions.Count() != 1 {
					t.Errorf("Expected 1 active session, got %d", env.sessions.Count())
				}

				again, err := env.gate.Authenticate(testContext(t), Credential{Password: "secret1"})
				if err != nil {
					t.Fatalf("Second login failed: %v", err)
				}
				if again.Session.SessionID == active.Session.SessionID {
					t.Error("Expected a distinct session per login")
				}
			},
		},
		{
			name: "Wrong password",
			run: func(t *testing.T, env *testEnv) {
				env.login(t)
				_, err := env.gate.Authenticate(testContext(t), Credential{Password: "nope123"})
				var aerr *model.AuthError
				if !errors.As(err, &aerr) || !errors.Is(err, model.ErrWrongCredential) {
					t.Errorf("Expected AuthError wrapping ErrWrongCredential, got %v", err)
				}
				if env.sessions.Count() != 1 {
					t.Errorf("Failed login must not create a session, have %d", env.sessions.Count())
				}
			},
		},
		{
			name: "Empty password",
			run: func(t *testing.T, env *testEnv) {
				var verr *model.ValidationError
				if _, err := env.gate.Authenticate(testContext(t), Credential{}); !errors.As(err, &verr) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
			},
		},
		{
			name: "Short first password",
			run: func(t *testing.T, env *testEnv) {
				var verr *model.ValidationError
				if _, err := env.gate.Authenticate(testContext(t), Credential{Password: "12345"}); !errors.As(err, &verr) {
					t.Errorf("Expected ValidationError, got %v", err)
				}
				if env.mr.Exists("projectManager:password") {
					t.Error("Short password must not be stored")
				}
			},
		},
		{
			name: "Store down",
			run: func(t *testing.T, env *testEnv) {
				env.mr.SetError("ERR simulated outage")
				defer env.mr.SetError("")
				var serr *model.StoreError
				if _, err := env.gate.Authenticate(testContext(t), Credential{Password: "secret1"}); !errors.As(err, &serr) {
					t.Errorf("Expected StoreError, got %v", err)
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

func TestGateChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	active := env.login(t)
	s := active.Session

	var verr *model.ValidationError
	if err := env.gate.ChangePassword(ctx, s, "secret1", "short", "short"); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for short password, got %v", err)
	}
	if err := env.gate.ChangePassword(ctx, s, "secret1", "newpass1", "newpass2"); !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError for mismatch, got %v", err)
	}

	var aerr *model.AuthError
	if err := env.gate.ChangePassword(ctx, s, "wrong!!", "newpass1", "newpass1"); !errors.As(err, &aerr) || !errors.Is(err, model.ErrWrongCredential) {
		t.Errorf("Expected AuthError for wrong current password, got %v", err)
	}

	if err := env.gate.ChangePassword(ctx, s, "secret1", "newpass1", "newpass1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := env.gate.Authenticate(ctx, Credential{Password: "secret1"}); !errors.As(err, &aerr) {
		t.Errorf("Old password should be rejected, got %v", err)
	}
	if _, err := env.gate.Authenticate(ctx, Credential{Password: "newpass1"}); err != nil {
		t.Errorf("New password rejected: %v", err)
	}
}

func TestGateLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := testContext(t)
	active := env.login(t)
	events, _ := active.Hub.Subscribe()

	if _, err := env.entities.CreateProject(ctx, active.Session, model.Project{Name: "Website"}); err != nil {
		t.Fatal(err)
	}

	env.gate.Logout(active.Session.SessionID)
	env.gate.Logout(active.Session.SessionID)

	if _, err := env.sessions.Get(active.Session.SessionID); !errors.Is(err, model.ErrNotAuthenticated) {
		t.Errorf("Expected session gone, got %v", err)
	}
	if active.Scheduler.State() != SchedulerIdle {
		t.Errorf("Expected scheduler idle after logout, got %s", active.Scheduler.State())
	}

	// Writes after logout no longer reach the old cache.
	if _, err := env.entities.CreateProject(ctx, active.Session, model.Project{Name: "Ops"}); err != nil {
		t.Fatal(err)
	}
	if got := len(active.Cache.Projects()); got != 0 {
		t.Errorf("Expected cleared cache after logout, got %d", got)
	}

	for range events {
	}
}
