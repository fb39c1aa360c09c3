package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"tracker/config"
	"tracker/logging"
	"tracker/model"
	"tracker/utils"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per entity. Documents carry user_id and an
// _id of "<user>:<id>" so change events, deletes included, can be scoped to
// a user by key alone.
type MongoStore struct {
	client    *mongo.Client
	projects  *mongo.Collection
	tasks     *mongo.Collection
	reminders *mongo.Collection
	breaker   *gobreaker.CircuitBreaker
}

func NewMongoStore(client *mongo.Client, dbName string, cfg config.BreakerConfig) *MongoStore {
	db := client.Database(dbName)
	log := logging.For("mongo_store")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mongo-store",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrNotFound) || mongo.IsDuplicateKeyError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &MongoStore{
		client:    client,
		projects:  db.Collection(string(model.KindProjects)),
		tasks:     db.Collection(string(model.KindTasks)),
		reminders: db.Collection(string(model.KindReminders)),
		breaker:   breaker,
	}
}

func docID(userID, id string) string {
	return userID + ":" + id
}

func (s *MongoStore) collection(kind model.Kind) (*mongo.Collection, error) {
	switch kind {
	case model.KindProjects:
		return s.projects, nil
	case model.KindTasks:
		return s.tasks, nil
	case model.KindReminders:
		return s.reminders, nil
	}
	return nil, fmt.Errorf("unknown collection %q", kind)
}

func (s *MongoStore) execute(fn func() error) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// toDoc flattens an entity into a document and stamps the ownership keys.
func toDoc(userID, id string, v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	doc["_id"] = docID(userID, id)
	doc["user_id"] = userID
	return doc, nil
}

func (s *MongoStore) insert(ctx context.Context, coll *mongo.Collection, userID, id string, v interface{}) error {
	timer := utils.TrackDBOperation("insert", coll.Name())
	defer timer.ObserveDuration()

	doc, err := toDoc(userID, id, v)
	if err != nil {
		return err
	}
	err = s.execute(func() error {
		_, err := coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		utils.TrackError("database", coll.Name()+"_insert_failed")
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", id, model.ErrDuplicateID)
		}
		return err
	}
	return nil
}

func (s *MongoStore) update(ctx context.Context, coll *mongo.Collection, userID, id string, set bson.M) error {
	timer := utils.TrackDBOperation("update", coll.Name())
	defer timer.ObserveDuration()

	update := bson.M{"$currentDate": bson.M{"updated_at": true}}
	if len(set) > 0 {
		update["$set"] = set
	}

	err := s.execute(func() error {
		result, err := coll.UpdateOne(ctx, bson.M{"_id": docID(userID, id)}, update)
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return model.ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		utils.TrackError("database", coll.Name()+"_update_failed")
	}
	return err
}

func (s *MongoStore) delete(ctx context.Context, coll *mongo.Collection, userID, id string) error {
	timer := utils.TrackDBOperation("delete", coll.Name())
	defer timer.ObserveDuration()

	err := s.execute(func() error {
		result, err := coll.DeleteOne(ctx, bson.M{"_id": docID(userID, id)})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return model.ErrNotFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		utils.TrackError("database", coll.Name()+"_delete_failed")
	}
	return err
}

func listDocs[T any](ctx context.Context, s *MongoStore, coll *mongo.Collection, userID string) ([]T, error) {
	timer := utils.TrackDBOperation("find", coll.Name())
	defer timer.ObserveDuration()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	res, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := coll.Find(ctx, bson.M{"user_id": userID}, opts)
		if err != nil {
			return nil, err
		}
		items := []T{}
		if err := cursor.All(ctx, &items); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		utils.TrackError("database", coll.Name()+"_find_failed")
		return nil, err
	}
	return res.([]T), nil
}

// inTransaction runs fn in a multi-document transaction through the breaker.
func (s *MongoStore) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	return s.execute(func() error {
		session, err := s.client.StartSession()
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		defer session.EndSession(ctx)

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		return err
	})
}

// Projects

func (s *MongoStore) CreateProject(ctx context.Context, userID string, project model.Project) error {
	return s.insert(ctx, s.projects, userID, project.ID, project)
}

func (s *MongoStore) UpdateProject(ctx context.Context, userID, id string, patch model.ProjectPatch) error {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.URL != nil {
		set["url"] = *patch.URL
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	return s.update(ctx, s.projects, userID, id, set)
}

func (s *MongoStore) DeleteProject(ctx context.Context, userID, id string) error {
	timer := utils.TrackDBOperation("delete", s.projects.Name())
	defer timer.ObserveDuration()

	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		result, err := s.projects.DeleteOne(sc, bson.M{"_id": docID(userID, id)})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return model.ErrNotFound
		}
		_, err = s.tasks.DeleteMany(sc, bson.M{"user_id": userID, "project_id": id})
		return err
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		utils.TrackError("database", "project_cascade_failed")
	}
	return err
}

func (s *MongoStore) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	return listDocs[model.Project](ctx, s, s.projects, userID)
}

// Tasks

func (s *MongoStore) CreateTask(ctx context.Context, userID string, task model.Task) error {
	return s.insert(ctx, s.tasks, userID, task.ID, task)
}

func (s *MongoStore) UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) error {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.ProjectID != nil {
		set["project_id"] = *patch.ProjectID
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Priority != nil {
		set["priority"] = *patch.Priority
	}
	if patch.DueDate != nil {
		set["due_date"] = *patch.DueDate
	}
	return s.update(ctx, s.tasks, userID, id, set)
}

func (s *MongoStore) DeleteTask(ctx context.Context, userID, id string) error {
	return s.delete(ctx, s.tasks, userID, id)
}

func (s *MongoStore) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return listDocs[model.Task](ctx, s, s.tasks, userID)
}

// Reminders

func (s *MongoStore) CreateReminder(ctx context.Context, userID string, reminder model.Reminder) error {
	return s.insert(ctx, s.reminders, userID, reminder.ID, reminder)
}

func (s *MongoStore) UpdateReminder(ctx context.Context, userID, id string, patch model.ReminderPatch) error {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DateTime != nil {
		set["date_time"] = *patch.DateTime
	}
	if patch.ProjectID != nil {
		set["project_id"] = *patch.ProjectID
	}
	if patch.Notified != nil && *patch.Notified {
		set["notified"] = true
	}
	return s.update(ctx, s.reminders, userID, id, set)
}

func (s *MongoStore) DeleteReminder(ctx context.Context, userID, id string) error {
	return s.delete(ctx, s.reminders, userID, id)
}

func (s *MongoStore) ListReminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	return listDocs[model.Reminder](ctx, s, s.reminders, userID)
}

func (s *MongoStore) ReplaceAll(ctx context.Context, userID string, backup *model.Backup) error {
	if backup == nil {
		return errors.New("backup is nil")
	}
	timer := utils.TrackDBOperation("replace", "all")
	defer timer.ObserveDuration()

	docs := map[*mongo.Collection][]interface{}{}
	for _, p := range backup.Projects {
		doc, err := toDoc(userID, p.ID, p)
		if err != nil {
			return err
		}
		docs[s.projects] = append(docs[s.projects], doc)
	}
	for _, t := range backup.Tasks {
		doc, err := toDoc(userID, t.ID, t)
		if err != nil {
			return err
		}
		docs[s.tasks] = append(docs[s.tasks], doc)
	}
	for _, r := range backup.Reminders {
		doc, err := toDoc(userID, r.ID, r)
		if err != nil {
			return err
		}
		docs[s.reminders] = append(docs[s.reminders], doc)
	}

	err := s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		for _, coll := range []*mongo.Collection{s.projects, s.tasks, s.reminders} {
			if _, err := coll.DeleteMany(sc, bson.M{"user_id": userID}); err != nil {
				return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
			}
			if len(docs[coll]) == 0 {
				continue
			}
			if _, err := coll.InsertMany(sc, docs[coll]); err != nil {
				return fmt.Errorf("failed to import %s: %w", coll.Name(), err)
			}
		}
		return nil
	})
	if err != nil {
		utils.TrackError("database", "import_failed")
	}
	return err
}

func (s *MongoStore) snapshot(ctx context.Context, userID string, kind model.Kind) (model.Snapshot, error) {
	snap := model.Snapshot{Kind: kind}
	var err error
	switch kind {
	case model.KindProjects:
		snap.Projects, err = s.ListProjects(ctx, userID)
	case model.KindTasks:
		snap.Tasks, err = s.ListTasks(ctx, userID)
	case model.KindReminders:
		snap.Reminders, err = s.ListReminders(ctx, userID)
	default:
		err = fmt.Errorf("unknown collection %q", kind)
	}
	return snap, err
}

// Subscribe opens a change stream on the user's documents, delivers the
// current contents, and re-reads the collection on every event. The stream is
// opened before the initial read so no change falls between the two.
func (s *MongoStore) Subscribe(ctx context.Context, userID string, kind model.Kind, fn SnapshotFunc) (Subscription, error) {
	coll, err := s.collection(kind)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(userID+":")},
		}}},
	}

	var stream *mongo.ChangeStream
	err = s.execute(func() error {
		var err error
		stream, err = coll.Watch(subCtx, pipeline)
		return err
	})
	if err != nil {
		cancel()
		utils.TrackError("database", "watch_failed")
		return nil, fmt.Errorf("failed to watch %s: %w", kind, err)
	}

	snap, err := s.snapshot(subCtx, userID, kind)
	if err != nil {
		stream.Close(context.Background())
		cancel()
		return nil, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	fn(snap)

	sub := &mongoSubscription{cancel: cancel, done: make(chan struct{})}
	log := logging.For("mongo_store").WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    kind,
	})

	go func() {
		defer close(sub.done)
		defer stream.Close(context.Background())

		for stream.Next(subCtx) {
			snap, err := s.snapshot(subCtx, userID, kind)
			if subCtx.Err() != nil {
				return
			}
			if err != nil {
				log.WithError(err).Error("Failed to refresh snapshot after change")
				continue
			}
			fn(snap)
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			utils.TrackError("database", "change_stream_failed")
			log.WithError(err).Error("Change stream closed")
		}
	}()

	return sub, nil
}

type mongoSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (m *mongoSubscription) Cancel() {
	m.once.Do(func() {
		m.cancel()
		<-m.done
	})
}
