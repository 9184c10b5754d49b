package tracker

import (
	"context"
	"time"

	"github.com/jodli/geizhalsbot/internal/models"
	"github.com/jodli/geizhalsbot/internal/storage"

	"github.com/google/uuid"
)

// Notification tells the delivery layer which users to inform about an item.
// Message wording is left to the consumer.
type Notification struct {
	ID        string             `json:"id"`
	Kind      ResultKind         `json:"kind"`
	Item      models.TrackedItem `json:"item"`
	Old       models.Price       `json:"old_price"`
	New       models.Price       `json:"new_price"`
	UserIDs   []int64            `json:"user_ids"`
	CreatedAt time.Time          `json:"created_at"`
}

// Empty reports whether nobody has to be notified
func (n Notification) Empty() bool {
	return len(n.UserIDs) == 0
}

// Dispatcher turns reconciliation results into notifications
type Dispatcher struct {
	repo storage.Repository
}

// NewDispatcher creates a dispatcher
func NewDispatcher(repo storage.Repository) *Dispatcher {
	return &Dispatcher{repo: repo}
}

// Dispatch returns the notification for result. Kinds that do not notify
// yield an empty notification.
func (d *Dispatcher) Dispatch(ctx context.Context, result Result) (Notification, error) {
	n := Notification{
		Kind: result.Kind,
		Item: result.Item,
		Old:  result.Old,
		New:  result.New,
	}
	if !result.Kind.Notifies() {
		return n, nil
	}

	userIDs, err := d.repo.ListSubscribers(ctx, result.Item.Variant, result.Item.ID)
	if err != nil {
		return n, err
	}

	n.ID = uuid.NewString()
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()
	return n, nil
}
