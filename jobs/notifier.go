package jobs

import (
	"context"

	"github.com/lumahq/luma/internal/staff"
)

// AccessChangeNotifier adapts the jobs client to the staff service's
// notifier port.
type AccessChangeNotifier struct {
	Client *Client
}

// AccessChanged enqueues a notification task for the change.
func (n AccessChangeNotifier) AccessChanged(ctx context.Context, change staff.AccessChange) error {
	if n.Client == nil {
		return nil
	}
	_, err := n.Client.EnqueueAccessChanged(ctx, AccessChangedPayload{
		StaffID:   change.StaffID.String(),
		Resource:  change.Resource,
		Action:    change.Action,
		Granted:   change.Granted,
		ChangedBy: change.ChangedBy,
		Reason:    change.Reason,
	})
	return err
}
