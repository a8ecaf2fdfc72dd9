package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAccessChanged is the task type notifying a staff member that
	// their access changed.
	TaskTypeAccessChanged = "staff:access_changed"
	// TaskTypeAccessReview is the periodic task flagging drifted access.
	TaskTypeAccessReview = "staff:access_review"
)

// AccessChangedPayload describes one permission change to notify about.
type AccessChangedPayload struct {
	StaffID   string `json:"staff_id"`
	Resource  string `json:"resource"`
	Action    string `json:"action"`
	Granted   bool   `json:"granted"`
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason,omitempty"`
}

// NewAccessChangedTask constructs an Asynq task.
func NewAccessChangedTask(payload AccessChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessChanged, data), nil
}

// HandleAccessChangedTask processes TaskTypeAccessChanged tasks. Delivery is
// a logged stub until the notification channel is chosen.
func HandleAccessChangedTask(ctx context.Context, t *asynq.Task) error {
	var payload AccessChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	verb := "revoked"
	if payload.Granted {
		verb = "granted"
	}
	slog.Default().Info("access change notification",
		slog.String("staff_id", payload.StaffID),
		slog.String("capability", payload.Resource+"."+payload.Action),
		slog.String("change", verb),
		slog.String("changed_by", payload.ChangedBy),
	)
	return nil
}

// AccessReviewPayload configures one access review run.
type AccessReviewPayload struct {
	// OverrideThreshold flags staff whose override count reaches it.
	OverrideThreshold int `json:"override_threshold"`
}

// NewAccessReviewTask constructs an Asynq task.
func NewAccessReviewTask(payload AccessReviewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessReview, data), nil
}
