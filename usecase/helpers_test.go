package usecase

import (
	"testing"
	"time"

	"tracker/config"
	"tracker/model"
	"tracker/repository"
	"tracker/services"
	"tracker/testutils"

	"github.com/alicebob/miniredis/v2"
)

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

const testSessionTTL = 24 * time.Hour

type testEnv struct {
	mr       *miniredis.Miniredis
	store    *repository.RedisStore
	clock    *testutils.FixedClock
	entities *EntityService
	sessions *SessionManager
	gate     *Gate
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr, client := testutils.NewTestRedis(t)
	clock := testutils.NewFixedClock(testStart)
	store := repository.NewRedisStore(client, "projectManager", clock)
	entities := NewEntityService(store, clock)
	sessions := NewSessionManager(store, entities, clock, config.ReminderConfig{
		CheckInterval: time.Hour,
		Lookahead:     5 * time.Minute,
	}, config.SessionConfig{TTL: testSessionTTL})
	identity := services.NewLocalIdentity(repository.NewCredentialRepo(client, "projectManager"))
	t.Cleanup(sessions.Shutdown)

	return &testEnv{
		mr:       mr,
		store:    store,
		clock:    clock,
		entities: entities,
		sessions: sessions,
		gate:     NewGate(identity, sessions, clock),
	}
}

// login authenticates the local identity, establishing the password on first use.
func (e *testEnv) login(t *testing.T) *ActiveSession {
	t.Helper()
	active, err := e.gate.Authenticate(testContext(t), Credential{Password: "secret1"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	return active
}

func testSession() *model.Session {
	return &model.Session{SessionID: "test-session", UserID: model.LocalUserID}
}
