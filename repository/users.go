package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tracker/model"
	"tracker/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrEmailTaken = errors.New("email already registered")

func GetUserRepo(client *mongo.Client, dbName string) *UserRepo {
	return &UserRepo{
		MongoCollection: client.Database(dbName).Collection("users"),
	}
}

// UserRepo stores remote-mode accounts.
type UserRepo struct {
	MongoCollection *mongo.Collection
}

func (r *UserRepo) AddUser(ctx context.Context, user *model.User) error {
	timer := utils.TrackDBOperation("insert", "users")
	defer timer.ObserveDuration()

	if user.UserID == "" || user.Email == "" || user.Password == "" {
		utils.TrackError("database", "invalid_user_data")
		return errors.New("user id, email and password required")
	}

	if _, err := r.MongoCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		utils.TrackError("database", "user_creation_failed")
		return fmt.Errorf("failed to add user to database: %w", err)
	}
	return nil
}

// FindUserByEmail returns nil, nil when no account uses the email.
func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	var user model.User
	err := r.MongoCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		utils.TrackError("database", "user_lookup_error")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) FindUser(ctx context.Context, userID string) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	var user model.User
	err := r.MongoCollection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		utils.TrackError("database", "user_lookup_error")
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) UpdateUserPassword(ctx context.Context, userID, hashedPassword string) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	if hashedPassword == "" {
		utils.TrackError("database", "invalid_password_hash")
		return fmt.Errorf("password hashing error")
	}

	update := bson.M{
		"$set": bson.M{
			"password":             hashedPassword,
			"last_password_change": time.Now(),
		},
	}

	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		utils.TrackError("database", "password_update_failed")
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}
