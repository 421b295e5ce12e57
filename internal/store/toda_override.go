package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goserveph/internal/utils"

	"github.com/redis/go-redis/v9"
)

const todaOverridesKey = "goserveph:toda_overrides"

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// TODAOverrideRepository keeps staff corrections to the TODA classifier in
// one redis hash keyed by application id.
type TODAOverrideRepository struct {
	client *redis.Client
	key    string
}

func NewTODAOverrideRepository(client *redis.Client) *TODAOverrideRepository {
	return &TODAOverrideRepository{client: client, key: todaOverridesKey}
}

func (r *TODAOverrideRepository) Overrides(ctx context.Context) (map[string]bool, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to load toda overrides")
	}

	out := make(map[string]bool, len(raw))
	for id, v := range raw {
		out[id] = v == "1"
	}
	return out, nil
}

func (r *TODAOverrideRepository) Override(ctx context.Context, applicationID string) (*bool, error) {
	v, err := r.client.HGet(ctx, r.key, applicationID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to load toda override")
	}

	return utils.BoolPtr(v == "1"), nil
}

func (r *TODAOverrideRepository) SetOverride(ctx context.Context, applicationID string, toda bool) error {
	v := "0"
	if toda {
		v = "1"
	}

	err := r.client.HSet(ctx, r.key, applicationID, v).Err()
	return utils.ErrorWrapOrNil(err, "failed to save toda override")
}

func (r *TODAOverrideRepository) ClearOverride(ctx context.Context, applicationID string) error {
	err := r.client.HDel(ctx, r.key, applicationID).Err()
	return utils.ErrorWrapOrNil(err, "failed to clear toda override")
}
