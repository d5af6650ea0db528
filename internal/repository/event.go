package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/super-tictactoe-backend/internal/entity"
)

const DefaultEventQueue = "super:actions"

// EventRepository appends accepted actions to a Redis list for downstream consumers.
type EventRepository interface {
	Publish(ctx context.Context, record *entity.ActionRecord) error
	List(ctx context.Context, limit int64) ([]*entity.ActionRecord, error)
}

type dbEvent struct {
	client *redis.Client
	queue  string
}

func NewEventRepository(client *redis.Client, queue string) EventRepository {
	if queue == "" {
		queue = DefaultEventQueue
	}

	return &dbEvent{
		client: client,
		queue:  queue,
	}
}

func (that *dbEvent) Publish(ctx context.Context, record *entity.ActionRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal action record: %w", err)
	}

	if err = that.client.RPush(ctx, that.queue, recordJSON).Err(); err != nil {
		return fmt.Errorf("failed to push action record: %w", err)
	}

	return nil
}

// List returns up to limit oldest records without consuming them.
func (that *dbEvent) List(ctx context.Context, limit int64) ([]*entity.ActionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	response, err := that.client.LRange(ctx, that.queue, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read action records: %w", err)
	}

	records := make([]*entity.ActionRecord, 0, len(response))
	for _, item := range response {
		var record entity.ActionRecord
		if err = json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action record: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}
