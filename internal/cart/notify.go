package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Severity string

const SeverityError Severity = "error"

// Notification is a shopper-facing message, the equivalent of a toast.
type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Op        Op        `json:"op"`
	ProductID int64     `json:"product_id"`
	At        time.Time `json:"at"`
}

// Notifier is fire-and-forget: it has no way to report failure back.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Notifiers fans a notification out to each sink in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, n Notification) {
	for _, x := range ns {
		x.Notify(ctx, n)
	}
}

type LogNotifier struct {
	Log *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) {
	if l.Log == nil {
		return
	}
	l.Log.Warn("cart notification",
		zap.String("notification_id", n.ID),
		zap.String("severity", string(n.Severity)),
		zap.String("message", n.Message),
		zap.String("op", string(n.Op)),
		zap.Int64("product_id", n.ProductID),
	)
}

const defaultFeedSize = 50

// Feed keeps the most recent notifications, oldest first.
type Feed struct {
	mu    sync.Mutex
	max   int
	items []Notification
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = defaultFeedSize
	}
	return &Feed{max: max}
}

func (f *Feed) Notify(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, n)
	if over := len(f.items) - f.max; over > 0 {
		f.items = append(f.items[:0:0], f.items[over:]...)
	}
}

func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}
