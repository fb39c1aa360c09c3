package testutils

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"tracker/config"
	"tracker/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// FixedClock is a utils.Clock that only moves when told to.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// NewTestRedis starts an in-memory Redis server that is torn down with the test.
func NewTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return mr, client
}

// SetupTestDB connects to the MongoDB replica set at TEST_MONGO_URI and returns
// a client plus a throwaway database name. The test is skipped when no URI is
// configured. The database is dropped on cleanup.
func SetupTestDB(t *testing.T) (*mongo.Client, string) {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set, skipping MongoDB integration test")
	}

	cfg := config.DatabaseConfig{
		URI:             uri,
		MaxPoolSize:     config.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 20),
		MinPoolSize:     0,
		MaxConnIdleTime: 60 * time.Second,
		RetryWrites:     true,
	}

	client, err := utils.NewMongoClient(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	dbName := "tracker_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Database(dbName).Drop(ctx); err != nil {
			t.Logf("Warning: Failed to drop test database %s: %v", dbName, err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Warning: Failed to disconnect: %v", err)
		}
	})

	return client, dbName
}

// WaitFor polls cond until it holds or the timeout passes.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
