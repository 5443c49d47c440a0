// Package notifier runs the background jobs behind expiry push notifications.
//
// Two loops run while the server is up:
//
//	expiry loop   (every Interval)   → find items that expire soon or have
//	                                   expired, push one message per item to
//	                                   each of the owner's devices
//	cleanup loop  (every 24h)        → forget devices that have not been
//	                                   active for DeviceRetention
//
// DEDUPLICATION:
// Each (item, kind) pair is recorded in expiry_notifications once at least
// one device accepted the push. The pending query skips recorded pairs, so a
// user hears about an item at most twice: once while it is expiring and once
// after it expired. A send that fails everywhere is not recorded and is
// retried on the next tick.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/kitchi/internal/metrics"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/push"
	"github.com/sakif/kitchi/internal/repository"
)

const cleanupInterval = 24 * time.Hour

// Sender delivers push messages. *push.Client implements it.
type Sender interface {
	Send(ctx context.Context, messages []push.Message) ([]push.Ticket, error)
}

// Config controls the job schedule.
type Config struct {
	Interval        time.Duration
	WindowDays      int
	DeviceRetention time.Duration
}

// Result summarises one expiry run.
type Result struct {
	Pending        int // items that needed a notification
	Notified       int // items recorded as notified
	Sent           int // messages accepted by the push service
	Failed         int // messages rejected
	DevicesRemoved int64
}

// Notifier owns the expiry and device cleanup loops.
type Notifier struct {
	notifications repository.NotificationRepository
	devices       repository.DeviceRepository
	sender        Sender
	config        Config
	metrics       metrics.Recorder
	logger        *slog.Logger
	now           func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func New(
	notifications repository.NotificationRepository,
	devices repository.DeviceRepository,
	sender Sender,
	cfg Config,
	rec metrics.Recorder,
	logger *slog.Logger,
) *Notifier {
	if rec == nil {
		rec = metrics.Noop{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		notifications: notifications,
		devices:       devices,
		sender:        sender,
		config:        cfg,
		metrics:       rec,
		logger:        logger,
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches both loops. Each runs once immediately. Calling Start more
// than once has no effect.
func (n *Notifier) Start() {
	n.startOnce.Do(func() {
		n.logger.Info("starting expiry notifier",
			slog.Duration("interval", n.config.Interval),
			slog.Int("window_days", n.config.WindowDays),
		)
		n.wg.Add(2)
		go n.every(n.config.Interval, func(ctx context.Context) {
			if _, err := n.RunOnce(ctx); err != nil {
				n.logger.Error("expiry run failed", slog.String("error", err.Error()))
			}
		})
		go n.every(cleanupInterval, func(ctx context.Context) {
			if _, err := n.CleanupDevices(ctx); err != nil {
				n.logger.Error("device cleanup failed", slog.String("error", err.Error()))
			}
		})
	})
}

// Stop cancels any run in progress and waits for both loops to exit.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		n.logger.Info("shutting down expiry notifier")
		n.cancel()
		n.wg.Wait()
	})
}

func (n *Notifier) every(interval time.Duration, fn func(ctx context.Context)) {
	defer n.wg.Done()

	fn(n.ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			fn(n.ctx)
		}
	}
}

// RunOnce sends every pending expiry notification.
func (n *Notifier) RunOnce(ctx context.Context) (*Result, error) {
	start := time.Now()
	now := n.now()
	today := now.Format(model.ExpiryDateLayout)
	cutoff := now.AddDate(0, 0, n.config.WindowDays).Format(model.ExpiryDateLayout)

	items, err := n.notifications.ListPendingExpiry(ctx, today, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}
	res := &Result{Pending: len(items)}
	if len(items) == 0 {
		return res, nil
	}

	// One message per (item, device). owners[i] is the item behind messages[i].
	var messages []push.Message
	var owners []int
	for _, group := range groupByUser(items) {
		devices, err := n.devices.ListDevicesByUser(ctx, group.userID)
		if err != nil {
			return nil, fmt.Errorf("listing devices for %s: %w", group.userID, err)
		}
		if len(devices) == 0 {
			continue
		}
		for _, idx := range group.items {
			title, body := Message(items[idx], today)
			for _, d := range devices {
				messages = append(messages, push.Message{
					To:    d.PushToken,
					Title: title,
					Body:  body,
					Sound: "default",
					Data: map[string]any{
						"pantryItemId": items[idx].ID,
						"kind":         items[idx].Kind,
					},
				})
				owners = append(owners, idx)
			}
		}
	}
	if len(messages) == 0 {
		return res, nil
	}

	tickets, sendErr := n.sender.Send(ctx, messages)
	if sendErr != nil {
		// Tickets for batches that went out are still valid.
		n.logger.Warn("push send incomplete",
			slog.Int("messages", len(messages)),
			slog.Int("tickets", len(tickets)),
			slog.String("error", sendErr.Error()),
		)
	}

	accepted := make(map[int]bool)
	gone := make(map[string]bool)
	for i, t := range tickets {
		if t.OK() {
			res.Sent++
			accepted[owners[i]] = true
			continue
		}
		res.Failed++
		if t.DeviceGone() {
			gone[messages[i].To] = true
		}
	}
	res.Failed += len(messages) - len(tickets)

	for idx := range accepted {
		it := items[idx]
		err := n.notifications.RecordNotification(ctx, &model.ExpiryNotification{
			UserID:       it.UserID,
			PantryItemID: it.ID,
			Kind:         it.Kind,
		})
		if err != nil {
			return res, fmt.Errorf("recording notification: %w", err)
		}
		res.Notified++
	}

	for token := range gone {
		removed, err := n.devices.DeleteDevicesByToken(ctx, token)
		if err != nil {
			n.logger.Warn("failed to remove unregistered device", slog.String("error", err.Error()))
			continue
		}
		res.DevicesRemoved += removed
	}

	n.metrics.RecordPush(res.Sent, res.Failed)
	n.metrics.RecordExpiryNotified(res.Notified)
	n.logger.Info("expiry run complete",
		slog.Int("pending", res.Pending),
		slog.Int("notified", res.Notified),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Int64("devices_removed", res.DevicesRemoved),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}

// CleanupDevices deletes registrations not seen for DeviceRetention.
func (n *Notifier) CleanupDevices(ctx context.Context) (int64, error) {
	before := n.now().Add(-n.config.DeviceRetention)
	deleted, err := n.devices.DeleteStaleDevices(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("deleting stale devices: %w", err)
	}
	n.logger.Info("device cleanup complete",
		slog.Int64("deleted_count", deleted),
		slog.Duration("retention", n.config.DeviceRetention),
	)
	return deleted, nil
}

// Message builds the push title and body for one item, relative to today
// (YYYY-MM-DD).
func Message(it model.ExpiringItem, today string) (title, body string) {
	if it.Kind == model.NotifyExpired {
		return "Food expired", fmt.Sprintf("%s expired on %s", it.FoodName, it.ExpiryDate)
	}

	days := daysBetween(today, it.ExpiryDate)
	switch {
	case days <= 0:
		body = fmt.Sprintf("%s expires today", it.FoodName)
	case days == 1:
		body = fmt.Sprintf("%s expires tomorrow", it.FoodName)
	default:
		body = fmt.Sprintf("%s expires in %d days", it.FoodName, days)
	}
	return "Expiring soon", body
}

func daysBetween(from, to string) int {
	a, err1 := time.Parse(model.ExpiryDateLayout, from)
	b, err2 := time.Parse(model.ExpiryDateLayout, to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

type userItems struct {
	userID string
	items  []int
}

// groupByUser keeps first-seen user order.
func groupByUser(items []model.ExpiringItem) []userItems {
	var groups []userItems
	pos := make(map[string]int)
	for i, it := range items {
		g, ok := pos[it.UserID]
		if !ok {
			g = len(groups)
			pos[it.UserID] = g
			groups = append(groups, userItems{userID: it.UserID})
		}
		groups[g].items = append(groups[g].items, i)
	}
	return groups
}
