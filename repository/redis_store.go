package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"tracker/logging"
	"tracker/model"
	"tracker/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxTxRetries = 3

var errTxRetriesExhausted = errors.New("transaction aborted after concurrent modification")

type subKey struct {
	userID string
	kind   model.Kind
}

// RedisStore keeps each collection as a JSON array under
// <prefix>:<user>:<kind>. Mutations run as WATCH/MULTI/EXEC transactions and
// subscribers get a fresh snapshot before the mutating call returns.
type RedisStore struct {
	client *redis.Client
	prefix string
	clock  utils.Clock

	// mu serializes mutate-then-publish so snapshots reach subscribers in
	// the order the mutations committed.
	mu     sync.Mutex
	subs   map[subKey]map[uint64]SnapshotFunc
	nextID uint64

	// beforeCommit, when set, runs between the reads and EXEC of every
	// transaction attempt.
	beforeCommit func(ctx context.Context)
}

func NewRedisStore(client *redis.Client, prefix string, clock utils.Clock) *RedisStore {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		clock:  clock,
		subs:   make(map[subKey]map[uint64]SnapshotFunc),
	}
}

func (s *RedisStore) key(userID string, kind model.Kind) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, userID, kind)
}

// Projects

func (s *RedisStore) CreateProject(ctx context.Context, userID string, project model.Project) error {
	key := s.key(userID, model.KindProjects)
	return s.mutate(ctx, "insert", userID, []model.Kind{model.KindProjects}, func(tx *redis.Tx) (map[string][]byte, error) {
		return insertItem(ctx, tx, key, project)
	})
}

func (s *RedisStore) UpdateProject(ctx context.Context, userID, id string, patch model.ProjectPatch) error {
	key := s.key(userID, model.KindProjects)
	now := s.clock.Now()
	return s.mutate(ctx, "update", userID, []model.Kind{model.KindProjects}, func(tx *redis.Tx) (map[string][]byte, error) {
		return patchItem(ctx, tx, key, id, func(p *model.Project) {
			patch.Apply(p)
			p.UpdatedAt = now
		})
	})
}

func (s *RedisStore) DeleteProject(ctx context.Context, userID, id string) error {
	projectsKey := s.key(userID, model.KindProjects)
	tasksKey := s.key(userID, model.KindTasks)
	kinds := []model.Kind{model.KindProjects, model.KindTasks}

	return s.mutate(ctx, "delete", userID, kinds, func(tx *redis.Tx) (map[string][]byte, error) {
		projects, err := removeItem[model.Project](ctx, tx, projectsKey, id)
		if err != nil {
			return nil, err
		}
		tasks, err := readList[model.Task](ctx, tx, tasksKey)
		if err != nil {
			return nil, err
		}
		kept := make([]model.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ProjectID != id {
				kept = append(kept, t)
			}
		}

		out := make(map[string][]byte, 2)
		if out[projectsKey], err = encodeList(projects); err != nil {
			return nil, err
		}
		if out[tasksKey], err = encodeList(kept); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func (s *RedisStore) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	timer := utils.TrackDBOperation("find", string(model.KindProjects))
	defer timer.ObserveDuration()
	return readList[model.Project](ctx, s.client, s.key(userID, model.KindProjects))
}

// Tasks

func (s *RedisStore) CreateTask(ctx context.Context, userID string, task model.Task) error {
	key := s.key(userID, model.KindTasks)
	return s.mutate(ctx, "insert", userID, []model.Kind{model.KindTasks}, func(tx *redis.Tx) (map[string][]byte, error) {
		return insertItem(ctx, tx, key, task)
	})
}

func (s *RedisStore) UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) error {
	key := s.key(userID, model.KindTasks)
	now := s.clock.Now()
	return s.mutate(ctx, "update", userID, []model.Kind{model.KindTasks}, func(tx *redis.Tx) (map[string][]byte, error) {
		return patchItem(ctx, tx, key, id, func(t *model.Task) {
			patch.Apply(t)
			t.UpdatedAt = now
		})
	})
}

func (s *RedisStore) DeleteTask(ctx context.Context, userID, id string) error {
	key := s.key(userID, model.KindTasks)
	return s.mutate(ctx, "delete", userID, []model.Kind{model.KindTasks}, func(tx *redis.Tx) (map[string][]byte, error) {
		tasks, err := removeItem[model.Task](ctx, tx, key, id)
		if err != nil {
			return nil, err
		}
		return encodeWrite(key, tasks)
	})
}

func (s *RedisStore) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	timer := utils.TrackDBOperation("find", string(model.KindTasks))
	defer timer.ObserveDuration()
	return readList[model.Task](ctx, s.client, s.key(userID, model.KindTasks))
}

// Reminders

func (s *RedisStore) CreateReminder(ctx context.Context, userID string, reminder model.Reminder) error {
	key := s.key(userID, model.KindReminders)
	return s.mutate(ctx, "insert", userID, []model.Kind{model.KindReminders}, func(tx *redis.Tx) (map[string][]byte, error) {
		return insertItem(ctx, tx, key, reminder)
	})
}

func (s *RedisStore) UpdateReminder(ctx context.Context, userID, id string, patch model.ReminderPatch) error {
	key := s.key(userID, model.KindReminders)
	now := s.clock.Now()
	return s.mutate(ctx, "update", userID, []model.Kind{model.KindReminders}, func(tx *redis.Tx) (map[string][]byte, error) {
		return patchItem(ctx, tx, key, id, func(r *model.Reminder) {
			patch.Apply(r)
			r.UpdatedAt = now
		})
	})
}

func (s *RedisStore) DeleteReminder(ctx context.Context, userID, id string) error {
	key := s.key(userID, model.KindReminders)
	return s.mutate(ctx, "delete", userID, []model.Kind{model.KindReminders}, func(tx *redis.Tx) (map[string][]byte, error) {
		reminders, err := removeItem[model.Reminder](ctx, tx, key, id)
		if err != nil {
			return nil, err
		}
		return encodeWrite(key, reminders)
	})
}

func (s *RedisStore) ListReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	timer := utils.TrackDBOperation("find", string(model.KindReminders))
	defer timer.ObserveDuration()
	return readList[model.Reminder](ctx, s.client, s.key(userID, model.KindReminders))
}

func (s *RedisStore) ReplaceAll(ctx context.Context, userID string, backup *model.Backup) error {
	if backup == nil {
		return errors.New("backup is nil")
	}

	out := make(map[string][]byte, len(model.Kinds))
	var err error
	if out[s.key(userID, model.KindProjects)], err = encodeList(backup.Projects); err != nil {
		return err
	}
	if out[s.key(userID, model.KindTasks)], err = encodeList(backup.Tasks); err != nil {
		return err
	}
	if out[s.key(userID, model.KindReminders)], err = encodeList(backup.Reminders); err != nil {
		return err
	}

	return s.mutate(ctx, "replace", userID, model.Kinds, func(*redis.Tx) (map[string][]byte, error) {
		return out, nil
	})
}

// Subscribe registers fn and delivers the current snapshot before returning.
func (s *RedisStore) Subscribe(ctx context.Context, userID string, kind model.Kind, fn SnapshotFunc) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshot(ctx, userID, kind)
	if err != nil {
		utils.TrackError("database", "subscribe_failed")
		return nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}

	k := subKey{userID: userID, kind: kind}
	if s.subs[k] == nil {
		s.subs[k] = make(map[uint64]SnapshotFunc)
	}
	s.nextID++
	id := s.nextID
	s.subs[k][id] = fn

	fn(snap)
	return &redisSubscription{store: s, key: k, id: id}, nil
}

type redisSubscription struct {
	store *RedisStore
	key   subKey
	id    uint64
	once  sync.Once
}

func (r *redisSubscription) Cancel() {
	r.once.Do(func() {
		r.store.mu.Lock()
		defer r.store.mu.Unlock()
		delete(r.store.subs[r.key], r.id)
		if len(r.store.subs[r.key]) == 0 {
			delete(r.store.subs, r.key)
		}
	})
}

// mutate runs fn inside an optimistic transaction watching the keys of kinds,
// retrying when another writer got in between, then publishes the affected
// collections.
func (s *RedisStore) mutate(ctx context.Context, op, userID string, kinds []model.Kind, fn func(tx *redis.Tx) (map[string][]byte, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	collection := string(kinds[0])
	timer := utils.TrackDBOperation(op, collection)
	defer timer.ObserveDuration()

	keys := make([]string, len(kinds))
	for i, kind := range kinds {
		keys[i] = s.key(userID, kind)
	}

	txf := func(tx *redis.Tx) error {
		out, err := fn(tx)
		if err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit(ctx)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for key, data := range out {
				pipe.Set(ctx, key, data, 0)
			}
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, redis.TxFailedErr) {
		err = errTxRetriesExhausted
	}
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			utils.TrackError("database", collection+"_"+op+"_failed")
		}
		return err
	}

	for _, kind := range kinds {
		s.publishLocked(ctx, userID, kind)
	}
	return nil
}

func (s *RedisStore) publishLocked(ctx context.Context, userID string, kind model.Kind) {
	fns := s.subs[subKey{userID: userID, kind: kind}]
	if len(fns) == 0 {
		return
	}
	snap, err := s.snapshot(ctx, userID, kind)
	if err != nil {
		logging.For("redis_store").WithFields(logrus.Fields{
			"user_id": userID,
			"kind":    kind,
		}).WithError(err).Error("Failed to read snapshot after commit")
		return
	}
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *RedisStore) snapshot(ctx context.Context, userID string, kind model.Kind) (model.Snapshot, error) {
	snap := model.Snapshot{Kind: kind}
	var err error
	switch kind {
	case model.KindProjects:
		snap.Projects, err = readList[model.Project](ctx, s.client, s.key(userID, kind))
	case model.KindTasks:
		snap.Tasks, err = readList[model.Task](ctx, s.client, s.key(userID, kind))
	case model.KindReminders:
		snap.Reminders, err = readList[model.Reminder](ctx, s.client, s.key(userID, kind))
	default:
		err = fmt.Errorf("unknown collection %q", kind)
	}
	return snap, err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readList[T any](ctx context.Context, g getter, key string) ([]T, error) {
	raw, err := g.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []T{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("corrupt data at %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func encodeList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func encodeWrite[T any](key string, items []T) (map[string][]byte, error) {
	data, err := encodeList(items)
	if err != nil {
		return nil, err
	}
	return map[string][]byte{key: data}, nil
}

func insertItem[T entity](ctx context.Context, tx *redis.Tx, key string, item T) (map[string][]byte, error) {
	items, err := readList[T](ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if indexOf(items, item.EntityID()) >= 0 {
		return nil, fmt.Errorf("%s: %w", item.EntityID(), model.ErrDuplicateID)
	}
	return encodeWrite(key, append(items, item))
}

func patchItem[T entity](ctx context.Context, tx *redis.Tx, key, id string, apply func(*T)) (map[string][]byte, error) {
	items, err := readList[T](ctx, tx, key)
	if err != nil {
		return nil, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	apply(&items[i])
	return encodeWrite(key, items)
}

func removeItem[T entity](ctx context.Context, tx *redis.Tx, key, id string) ([]T, error) {
	items, err := readList[T](ctx, tx, key)
	if err != nil {
		return nil, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return nil, model.ErrNotFound
	}
	return append(items[:i], items[i+1:]...), nil
}
