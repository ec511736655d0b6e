package main

import (
	"context"
	"encoding/json"
	"log/slog"
)

type activityRecorder struct {
	storage *storage
	logger  *slog.Logger
}

// record appends an audit entry. Storage failures are logged and dropped; the caller's
// operation never fails because of them.
func (rec *activityRecorder) record(ctx context.Context, action, entity string, entityID *string, details any, userID string, taskID *string) {
	entry := &activityLog{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		UserID:   userID,
		TaskID:   taskID,
	}
	if details != nil {
		switch d := details.(type) {
		case string:
			entry.Details = &d
		default:
			data, err := json.Marshal(d)
			if err != nil {
				rec.logger.Error("failed to encode activity details", "action", action, "error", err)
				return
			}
			s := string(data)
			entry.Details = &s
		}
	}

	err := rec.storage.insertActivity(ctx, entry)
	if err != nil {
		rec.logger.Error("failed to log activity", "action", action, "entity", entity, "user_id", userID, "error", err)
	}
}
