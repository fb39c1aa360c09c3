package repository

import (
	"context"
	"errors"
	"fmt"

	"tracker/utils"

	"github.com/redis/go-redis/v9"
)

// CredentialRepo holds the single password hash used in local mode.
type CredentialRepo struct {
	client *redis.Client
	key    string
}

func NewCredentialRepo(client *redis.Client, prefix string) *CredentialRepo {
	return &CredentialRepo{client: client, key: prefix + ":password"}
}

// PasswordHash returns the stored hash, or "" when no password was ever set.
func (r *CredentialRepo) PasswordHash(ctx context.Context) (string, error) {
	timer := utils.TrackDBOperation("find", "credentials")
	defer timer.ObserveDuration()

	hash, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		utils.TrackError("database", "credential_lookup_failed")
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return hash, nil
}

// InitPasswordHash stores hash only if no password exists yet. It reports
// whether this call set it.
func (r *CredentialRepo) InitPasswordHash(ctx context.Context, hash string) (bool, error) {
	timer := utils.TrackDBOperation("insert", "credentials")
	defer timer.ObserveDuration()

	ok, err := r.client.SetNX(ctx, r.key, hash, 0).Result()
	if err != nil {
		utils.TrackError("database", "credential_creation_failed")
		return false, fmt.Errorf("failed to store password: %w", err)
	}
	return ok, nil
}

func (r *CredentialRepo) SetPasswordHash(ctx context.Context, hash string) error {
	timer := utils.TrackDBOperation("update", "credentials")
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, r.key, hash, 0).Err(); err != nil {
		utils.TrackError("database", "credential_update_failed")
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
