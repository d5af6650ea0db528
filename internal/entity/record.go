package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionRecord is one accepted action as written to the event log.
type ActionRecord struct {
	ID        uuid.UUID       `json:"id"`
	GameCode  string          `json:"game_code"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func NewActionRecord(code string, action Action, at time.Time) (*ActionRecord, error) {
	payload, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("could not marshal action: %w", err)
	}

	return &ActionRecord{
		ID:        uuid.New(),
		GameCode:  code,
		Action:    action.Kind(),
		Payload:   payload,
		Timestamp: at.UnixMilli(),
	}, nil
}
