package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cam-watcher/cam/internal/model"
)

// NotificationLog appends records to notifications.log, one JSON object per
// line. Invariant (spec.md §3): every notification emitted appears exactly
// once in this log before webhook dispatch is attempted.
type NotificationLog struct {
	paths Paths
}

// NewNotificationLog returns a NotificationLog rooted at paths.
func NewNotificationLog(paths Paths) *NotificationLog {
	return &NotificationLog{paths: paths}
}

// Append writes rec to the log, assigning an ID if one is not already set.
func (l *NotificationLog) Append(rec model.NotificationRecord) (model.NotificationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("marshaling notification record: %w", err)
	}
	if err := AppendLine(l.paths.NotificationsLog(), data); err != nil {
		return rec, err
	}
	return rec, nil
}
