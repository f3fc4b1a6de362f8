package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukerupert/pawkeep/internal/model"
	"github.com/dukerupert/pawkeep/internal/push"
	"github.com/dukerupert/pawkeep/internal/store"
	"github.com/dukerupert/pawkeep/internal/websocket"
)

// How long delivered-notification log entries are kept before cleanup.
const sentRetention = 30 * 24 * time.Hour

// Sender delivers one push notification. push.Service satisfies it. A nil
// Sender is allowed; reminders then reach the change feed only.
type Sender interface {
	Send(sub *model.PushSubscription, payload push.Payload) error
}

// Broadcaster fans a message out to connected clients. websocket.Hub
// satisfies it.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

// Notifier periodically scans for reminders entering their notification
// window and delivers them over web push and the WebSocket feed. The
// notification log keeps a rescan from sending the same reminder twice.
type Notifier struct {
	events *store.EventStore
	subs   *store.PushStore
	sender Sender
	hub    Broadcaster
	slice  time.Duration
	logger *slog.Logger
	cron   *cron.Cron
}

func NewNotifier(events *store.EventStore, subs *store.PushStore, sender Sender, hub Broadcaster, slice time.Duration, logger *slog.Logger) *Notifier {
	if slice <= 0 {
		slice = DefaultSlice
	}
	return &Notifier{
		events: events,
		subs:   subs,
		sender: sender,
		hub:    hub,
		slice:  slice,
		logger: logger.With("component", "reminder"),
		cron:   cron.New(),
	}
}

// Start schedules the minutely scan and daily log cleanup.
func (n *Notifier) Start() error {
	if _, err := n.cron.AddFunc("@every 1m", func() {
		n.scan(time.Now().UTC())
	}); err != nil {
		return fmt.Errorf("schedule reminder scan: %w", err)
	}
	if _, err := n.cron.AddFunc("@daily", n.cleanup); err != nil {
		return fmt.Errorf("schedule log cleanup: %w", err)
	}
	n.cron.Start()
	n.logger.Info("reminder notifier started", "slice", n.slice)
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (n *Notifier) Stop() {
	ctx := n.cron.Stop()
	<-ctx.Done()
	n.logger.Info("reminder notifier stopped")
}

func (n *Notifier) scan(now time.Time) {
	candidates, err := n.events.UpcomingReminders(now)
	if err != nil {
		n.logger.Error("load reminder candidates", "error", err)
		return
	}

	due := DueFilter(candidates, now, n.slice)
	if len(due) == 0 {
		return
	}

	subs, err := n.subs.ListAll()
	if err != nil {
		n.logger.Error("list subscriptions", "error", err)
		return
	}

	for _, e := range due {
		sent, err := n.subs.WasSent(model.NotifTypeReminderDue, e.ID, e.ReminderLeadHours)
		if err != nil {
			n.logger.Error("check notification log", "event", e.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		n.deliver(e, subs)

		if err := n.subs.RecordSent(model.NotifTypeReminderDue, e.ID, e.ReminderLeadHours); err != nil {
			n.logger.Error("record sent notification", "event", e.ID, "error", err)
		}
		n.hub.Broadcast(websocket.ReminderDue(e.ID, e.PetID, e.Title))
	}
}

// deliver pushes one reminder to every registered subscription, dropping
// subscriptions the push service reports as gone.
func (n *Notifier) deliver(e model.Event, subs []model.PushSubscription) {
	if n.sender == nil {
		return
	}

	payload := push.Payload{
		Title: "Pet care reminder",
		Body:  fmt.Sprintf("%s on %s", e.Title, e.StartsAt.Format("Mon Jan 2 at 15:04")),
		URL:   fmt.Sprintf("/pets/%d", e.PetID),
		Tag:   fmt.Sprintf("reminder-%d", e.ID),
	}

	for i := range subs {
		sub := subs[i]
		if err := n.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("drop expired subscription", "endpoint", sub.Endpoint, "error", err)
				} else {
					n.logger.Info("dropped expired subscription", "endpoint", sub.Endpoint)
				}
				continue
			}
			n.logger.Error("send reminder", "event", e.ID, "endpoint", sub.Endpoint, "error", err)
		}
	}
}

func (n *Notifier) cleanup() {
	if err := n.subs.CleanupSent(time.Now().UTC().Add(-sentRetention)); err != nil {
		n.logger.Error("cleanup notification log", "error", err)
	}
}
