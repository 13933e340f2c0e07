package evaluator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Pandusss/cryptowatcher-sub000/internal/alertstore"
	"github.com/Pandusss/cryptowatcher-sub000/internal/model"
	"github.com/Pandusss/cryptowatcher-sub000/internal/notifier"
)

// PriceSource answers the one question a sweep asks: the current price of a
// coin, or nil when unknown. The aggregation router satisfies it.
type PriceSource interface {
	Price(ctx context.Context, coinID string) *model.PriceSnapshot
}

// Checker periodically sweeps all active alerts against current prices.
//
// Each sweep: expired alerts are hard-deleted first, the rest are grouped by
// coin so one price read serves the whole group, and each met condition is
// claimed atomically before delivery so an alert fires at most once even if
// delivery then fails.
type Checker struct {
	repo     alertstore.Repository
	prices   PriceSource
	notifier notifier.Notifier
	interval time.Duration

	// now is swappable so tests can pin the clock.
	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewChecker(repo alertstore.Repository, prices PriceSource, n notifier.Notifier, interval time.Duration) *Checker {
	return &Checker{
		repo:     repo,
		prices:   prices,
		notifier: n,
		interval: interval,
		now:      time.Now,
	}
}

func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		log.Warn().Msg("notification checker already running")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.run(runCtx)
	log.Info().Dur("interval", c.interval).Msg("notification checker started")
}

// Stop cancels the sweep loop and waits for it. An in-flight sweep finishes
// its current coin group before honoring cancellation.
func (c *Checker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	<-done
	log.Info().Msg("notification checker stopped")
}

func (c *Checker) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.safeSweep(ctx)
		}
	}
}

func (c *Checker) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("sweep panicked, retrying next interval")
		}
	}()
	c.Sweep(ctx)
}

// Sweep runs one full evaluation pass.
func (c *Checker) Sweep(ctx context.Context) {
	alerts, err := c.repo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("listing active alerts failed")
		return
	}
	if len(alerts) == 0 {
		return
	}

	now := c.now().UTC()

	// expiry runs before any condition check
	var expired []string
	valid := alerts[:0]
	for _, a := range alerts {
		if a.Expired(now) {
			expired = append(expired, a.ID)
			continue
		}
		valid = append(valid, a)
	}
	if len(expired) > 0 {
		if err := c.repo.DeleteBatch(ctx, expired); err != nil {
			log.Error().Err(err).Int("count", len(expired)).Msg("deleting expired alerts failed")
		} else {
			log.Info().Int("count", len(expired)).Msg("expired alerts deleted")
		}
	}

	groups := make(map[string][]model.Alert)
	var order []string
	for _, a := range valid {
		if _, ok := groups[a.CoinID]; !ok {
			order = append(order, a.CoinID)
		}
		groups[a.CoinID] = append(groups[a.CoinID], a)
	}

	for _, coinID := range order {
		// cancellation is cooperative, checked between coin groups
		if ctx.Err() != nil {
			return
		}
		c.sweepGroup(ctx, coinID, groups[coinID], now)
	}
}

func (c *Checker) sweepGroup(ctx context.Context, coinID string, alerts []model.Alert, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("coin", coinID).Msg("coin group evaluation panicked")
		}
	}()

	snap := c.prices.Price(ctx, coinID)
	if snap == nil || snap.Price <= 0 {
		// unknown price: retry the whole group next sweep
		return
	}

	for i := range alerts {
		c.processAlert(ctx, &alerts[i], snap.Price, now)
	}
}

func (c *Checker) processAlert(ctx context.Context, a *model.Alert, price float64, now time.Time) {
	if !a.ConditionMet(price) {
		return
	}

	user, err := c.repo.GetUser(ctx, a.UserID)
	if err != nil {
		log.Error().Err(err).Str("alert", a.ID).Msg("loading alert owner failed")
		return
	}

	// DND suppresses delivery, not detection: the alert stays armed and can
	// fire on a later sweep once the window ends.
	if user.DNDActive(now) {
		log.Debug().Str("alert", a.ID).Int64("user", a.UserID).Msg("condition met inside DND window, delivery suppressed")
		return
	}

	claimed, err := c.repo.ClaimTrigger(ctx, a.ID, now)
	if err != nil {
		log.Error().Err(err).Str("alert", a.ID).Msg("claiming alert failed")
		return
	}
	if !claimed {
		// lost the race against a concurrent sweep or an API delete
		return
	}

	if !c.notifier.Send(ctx, a.UserID, *a, price) {
		// no retry and no re-arm: storms against a blocked user are worse
		// than one lost message
		log.Warn().Str("alert", a.ID).Int64("user", a.UserID).Msg("alert delivery failed")
		return
	}
	log.Info().Str("alert", a.ID).Str("coin", a.CoinID).Float64("price", price).Msg("alert delivered")
}
