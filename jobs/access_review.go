package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/lumahq/luma/internal/jobs"
)

const defaultOverrideThreshold = 10

// AccessReviewJob walks the override logs looking for staff whose
// individual permission drift has grown past the review threshold. It only
// flags; revoking remains a human decision through the permission editor.
type AccessReviewJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAccessReviewJob initialises the access review handler.
func NewAccessReviewJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AccessReviewJob {
	return &AccessReviewJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one access review run.
func (j *AccessReviewJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("access review: handler not configured")
	}
	var payload AccessReviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.OverrideThreshold <= 0 {
		payload.OverrideThreshold = defaultOverrideThreshold
	}

	tracker := j.Metrics.Track(TaskTypeAccessReview)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	rows, err := j.Pool.Query(ctx,
		`SELECT s.id, s.name, s.role, COUNT(o.id) AS override_count
		 FROM staff s
		 JOIN permission_overrides o ON o.staff_id = s.id
		 WHERE s.is_active
		 GROUP BY s.id, s.name, s.role
		 HAVING COUNT(o.id) >= $1
		 ORDER BY override_count DESC`, payload.OverrideThreshold)
	if err != nil {
		resultErr = err
		return resultErr
	}
	defer rows.Close()

	logger := j.logger().With(slog.Time("reviewed_at", j.clock()))
	flagged := 0
	for rows.Next() {
		var (
			id, name, role string
			count          int
		)
		if err := rows.Scan(&id, &name, &role, &count); err != nil {
			resultErr = err
			return resultErr
		}
		flagged++
		logger.Warn("access drift flagged for review",
			slog.String("staff_id", id),
			slog.String("name", name),
			slog.String("role", role),
			slog.Int("override_count", count),
		)
	}
	if err := rows.Err(); err != nil {
		resultErr = err
		return resultErr
	}

	j.Metrics.AddReviewFlags(flagged)
	logger.Info("access review completed", slog.Int("flagged", flagged))
	return nil
}

func (j *AccessReviewJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
