package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recorder persists every change to the log and then publishes it on the
// hub. It satisfies quiz.Notifier.
type Recorder struct {
	SiteID string
	Log    *Log // optional
	Hub    *Hub
	Logger *zap.Logger
}

func (r *Recorder) Notify(ctx context.Context, typ, owner, key, testID string) {
	e := Event{
		SiteID:    r.SiteID,
		Type:      typ,
		Key:       key,
		Owner:     owner,
		TestID:    testID,
		CreatedAt: time.Now().UTC(),
	}
	if r.Log != nil {
		// the change is already committed; a lost log entry only affects catch-up polling
		if err := r.Log.Append(context.WithoutCancel(ctx), &e); err != nil && r.Logger != nil {
			r.Logger.Error("event log append failed", zap.String("type", typ), zap.String("key", key), zap.Error(err))
		}
	}
	if r.Hub != nil {
		r.Hub.Publish(e)
	}
}
