package notifications

import (
	"context"
	"encoding/json"

	"arcade/internal/middleware"
	"arcade/internal/models"
	"arcade/internal/observability"
)

// FeedBroker publishes feed events. With Redis, events travel through
// FeedChannel and reach local clients through the hub's subscription;
// without it they go straight to the local hub.
type FeedBroker struct {
	hub      *Hub
	notifier *Notifier
}

func NewFeedBroker(hub *Hub, notifier *Notifier) *FeedBroker {
	return &FeedBroker{hub: hub, notifier: notifier}
}

// PublishFeed never fails the caller; delivery problems are logged.
func (b *FeedBroker) PublishFeed(ctx context.Context, event models.FeedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode feed event", "type", event.Type, "error", err)
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(event.Type).Inc()

	if b.notifier.Enabled() {
		err := b.notifier.PublishFeedEvent(ctx, string(payload))
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "feed publish failed, delivering locally", "type", event.Type, "error", err)
	}
	if b.hub != nil {
		b.hub.BroadcastAll(payload)
	}
}
