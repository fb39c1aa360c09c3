package repository

import (
	"context"
	"errors"
	"fmt"

	"tracker/model"
	"tracker/utils"

	"github.com/redis/go-redis/v9"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// PreferenceRepo stores UI preferences per user. The local user keeps the
// bare <prefix>:theme key, which is also what the login screen reads.
type PreferenceRepo struct {
	client *redis.Client
	prefix string
}

func NewPreferenceRepo(client *redis.Client, prefix string) *PreferenceRepo {
	return &PreferenceRepo{client: client, prefix: prefix}
}

func (r *PreferenceRepo) themeKey(userID string) string {
	if userID == "" || userID == model.LocalUserID {
		return r.prefix + ":theme"
	}
	return r.prefix + ":theme:" + userID
}

// Theme returns the user's saved theme, falling back to light when unset or
// unknown. An empty userID reads the local user's theme.
func (r *PreferenceRepo) Theme(ctx context.Context, userID string) (Theme, error) {
	timer := utils.TrackDBOperation("find", "preferences")
	defer timer.ObserveDuration()

	val, err := r.client.Get(ctx, r.themeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return ThemeLight, nil
	}
	if err != nil {
		utils.TrackError("database", "preference_lookup_failed")
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	if t := Theme(val); t.Valid() {
		return t, nil
	}
	return ThemeLight, nil
}

func (r *PreferenceRepo) SetTheme(ctx context.Context, userID string, theme Theme) error {
	if !theme.Valid() {
		return model.NewValidationError("theme", "must be one of: dark light")
	}

	timer := utils.TrackDBOperation("update", "preferences")
	defer timer.ObserveDuration()

	if err := r.client.Set(ctx, r.themeKey(userID), string(theme), 0).Err(); err != nil {
		utils.TrackError("database", "preference_update_failed")
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}
