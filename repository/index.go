package repository

import (
	"context"
	"fmt"
	"time"

	"tracker/logging"
	"tracker/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entityIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "id", Value: 1},
			},
			Options: options.Index().
				SetName("user_entity_id").
				SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().
				SetName("user_created"),
		},
	}

	for _, kind := range model.Kinds {
		if _, err := db.Collection(string(kind)).Indexes().CreateMany(ctx, entityIndexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", kind, err)
		}
	}

	// Cascade delete filters on project_id.
	_, err := db.Collection(string(model.KindTasks)).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "project_id", Value: 1},
		},
		Options: options.Index().SetName("user_project_tasks"),
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks project index: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("user_id_unique").SetUnique(true),
		},
	}
	if _, err := db.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	logging.For("indexes").Info("Successfully created all indexes")
	return nil
}
