package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/store"
)

// Sender delivers one notification. *Service implements it.
type Sender interface {
	Send(ctx context.Context, sub model.PushSubscription, payload Payload) error
}

// Scheduler periodically checks each subscribed user's stock and notifies
// items that newly dropped to the low-stock level. An item alerts once and
// is re-armed when it recovers.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	push     *store.PushStore
	sessions *store.SessionStore
	client   *api.Client
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(sender Sender, pushStore *store.PushStore, sessionStore *store.SessionStore, client *api.Client, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		sender:   sender,
		push:     pushStore,
		sessions: sessionStore,
		client:   client,
		interval: interval,
		now:      time.Now,
		logger:   logger.With("component", "push_scheduler"),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one check over every subscribed user.
func (s *Scheduler) Tick(ctx context.Context) {
	userIDs, err := s.push.ListUserIDs()
	if err != nil {
		s.logger.Error("list subscribed users", "error", err)
		return
	}

	for _, uid := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if err := s.checkUser(ctx, uid); err != nil {
			s.logger.Warn("low stock check", "user_id", uid, "error", err)
		}
	}
}

func (s *Scheduler) checkUser(ctx context.Context, userID string) error {
	// Alerts can only be computed while the user holds a live backend token.
	sess, err := s.sessions.LatestByUserID(userID, s.now())
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	low, err := FetchLowStock(ctx, s.client.WithToken(sess.Token))
	if err != nil {
		return err
	}

	alerted, err := s.push.AlertedItemIDs(userID)
	if err != nil {
		return err
	}

	lowIDs := make(map[int64]bool, len(low))
	var fresh []model.ItemListDisplay
	for _, item := range low {
		lowIDs[item.ID] = true
		if !alerted[item.ID] {
			fresh = append(fresh, item)
		}
	}
	for id := range alerted {
		if !lowIDs[id] {
			if err := s.push.ClearAlert(userID, id); err != nil {
				return err
			}
		}
	}

	if len(fresh) == 0 {
		return nil
	}

	subs, err := s.push.ListByUser(userID)
	if err != nil {
		return err
	}

	payload := lowStockPayload(fresh)
	delivered := 0
	for _, sub := range subs {
		err := s.sender.Send(ctx, sub, payload)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrExpired):
			if err := s.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				s.logger.Error("delete expired subscription", "user_id", userID, "error", err)
			}
		default:
			s.logger.Warn("send low stock alert", "user_id", userID, "error", err)
		}
	}

	// Retry next tick unless some device got the alert.
	if delivered == 0 {
		return nil
	}

	for _, item := range fresh {
		if err := s.push.RecordAlert(userID, item.ID); err != nil {
			return err
		}
	}
	s.logger.Info("low stock alert sent", "user_id", userID, "items", len(fresh))
	return nil
}

// FetchLowStock loads items, categories and stocks concurrently and returns
// the joined rows classified as low.
func FetchLowStock(ctx context.Context, client *api.Client) ([]model.ItemListDisplay, error) {
	var (
		items      []model.Item
		categories []model.Category
		stocks     []model.Stock
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { items, err = client.ListItems(gctx); return err })
	g.Go(func() (err error) { categories, err = client.ListCategories(gctx); return err })
	g.Go(func() (err error) { stocks, err = client.ListStocks(gctx); return err })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch inventory: %w", err)
	}
	return inventory.LowStockItems(inventory.JoinItems(items, categories, stocks)), nil
}

func lowStockPayload(items []model.ItemListDisplay) Payload {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	body := fmt.Sprintf("%sの在庫が少なくなっています", names[0])
	if len(items) > 1 {
		body = fmt.Sprintf("%d件のアイテムの在庫が少なくなっています: %s", len(items), strings.Join(names, "、"))
	}
	return Payload{
		Title: "在庫アラート",
		Body:  body,
		URL:   "/",
		Tag:   "low-stock",
	}
}
