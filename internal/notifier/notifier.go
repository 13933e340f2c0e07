package notifier

import (
	"context"

	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
)

// Notifier delivers a triggered alert to its owner. Fire-and-forget: the
// evaluator acts on the boolean result only and owes no retries.
type Notifier interface {
	Send(ctx context.Context, userID int64, alert model.Alert, currentPrice float64) bool
}
