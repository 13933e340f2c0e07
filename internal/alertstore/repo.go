package alertstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Repository is the relational-store surface the evaluator needs. The schema
// itself is owned by whichever backend is configured; both implementations
// bootstrap it with migrate().
type Repository interface {
	// CreateAlert stores a new alert, assigning an ID when empty.
	CreateAlert(ctx context.Context, a *model.Alert) error

	// ListActive returns every alert with is_active=true.
	ListActive(ctx context.Context) ([]model.Alert, error)

	// DeleteBatch hard-deletes expired alerts in one statement.
	DeleteBatch(ctx context.Context, ids []string) error

	// ClaimTrigger atomically deactivates an alert and stamps triggered_at.
	// It reports false when the alert was already claimed or deleted,
	// which is what makes delivery at-most-once under concurrent sweeps.
	ClaimTrigger(ctx context.Context, id string, at time.Time) (bool, error)

	UpsertUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id int64) (*model.User, error)

	Close() error
}

func formatDayTime(d *model.DayTime) any {
	if d == nil {
		return nil
	}
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

func parseDayTime(s *string) *model.DayTime {
	if s == nil || len(*s) < 5 {
		return nil
	}
	var h, m int
	if _, err := fmt.Sscanf(*s, "%d:%d", &h, &m); err != nil {
		return nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return nil
	}
	return &model.DayTime{Hour: h, Minute: m}
}

func millisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timeFromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
