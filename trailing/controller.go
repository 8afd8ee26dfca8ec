package trailing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tomtomtong/comfyTrade/bridge"
	"github.com/tomtomtong/comfyTrade/errors"
	"github.com/tomtomtong/comfyTrade/metric"
	"github.com/tomtomtong/comfyTrade/node"
	"github.com/tomtomtong/comfyTrade/store"
)

// pricePrecision bounds decimal rounding so float conversion noise never
// shows up as a spurious stop-loss change.
const pricePrecision = 8

// Controller trails stop-loss and take-profit on tracked open positions.
// It polls the terminal on a fixed interval, independent of any flow.
type Controller struct {
	terminal bridge.Terminal
	kv       store.KV
	notify   node.Notifier
	logger   *slog.Logger
	metrics  *trailingMetrics
	interval time.Duration

	mu      sync.Mutex
	configs map[int64]*Config

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller. kv persists the tracking set; notify
// may be nil to drop user notifications; metricsRegistry may be nil.
func NewController(
	terminal bridge.Terminal,
	kv store.KV,
	notify node.Notifier,
	interval time.Duration,
	logger *slog.Logger,
	metricsRegistry *metric.MetricsRegistry,
) (*Controller, error) {
	if terminal == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"trailing", "NewController", "terminal is required")
	}
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	if notify == nil {
		notify = func(string, node.NotifyLevel) {}
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := newTrailingMetrics(metricsRegistry)
	if err != nil {
		logger.Error("Failed to initialize trailing metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	return &Controller{
		terminal: terminal,
		kv:       kv,
		notify:   notify,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		configs:  make(map[int64]*Config),
	}, nil
}

// Load restores the persisted tracking set. Call once at startup, before
// Start.
func (c *Controller) Load(ctx context.Context) error {
	keys, err := c.kv.Keys(ctx)
	if err != nil {
		return errors.Wrap(err, "trailing", "Load", "list persisted tickets")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		data, err := c.kv.Get(ctx, key)
		if err != nil {
			return errors.Wrap(err, "trailing", "Load", "read ticket "+key)
		}

		var cfg Config
		if err := json.Unmarshal(data, &cfg); err != nil {
			c.logger.Warn("Dropping unreadable trailing config", "key", key, "error", err)
			continue
		}
		c.configs[cfg.Ticket] = &cfg
	}

	c.logger.Info("Restored trailing configs", "count", len(c.configs))
	c.metrics.setTracked(len(c.configs))
	return nil
}

// Track enables trailing for an open position. The position must exist on
// the terminal; when TrailSLOnly is set and no FixedTP was supplied, the
// position's live take-profit is captured as the pin. A zero trigger price
// activates immediately.
func (c *Controller) Track(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	positions, err := c.terminal.Positions(ctx)
	if err != nil {
		return errors.WrapTransient(err, "trailing", "Track", "fetch open positions")
	}

	var pos *bridge.Position
	for i := range positions {
		if positions[i].Ticket == cfg.Ticket {
			pos = &positions[i]
			break
		}
	}
	if pos == nil {
		return errors.WrapInvalid(errors.ErrPositionNotFound, "trailing", "Track",
			fmt.Sprintf("ticket %d is not an open position", cfg.Ticket))
	}

	if cfg.TrailSLOnly && cfg.FixedTP == nil {
		tp := pos.TakeProfit
		cfg.FixedTP = &tp
	}
	if cfg.TriggerPrice == 0 {
		cfg.Activated = true
	}
	cfg.LastPrice = pos.CurrentPrice

	c.mu.Lock()
	c.configs[cfg.Ticket] = &cfg
	tracked := len(c.configs)
	c.mu.Unlock()

	if err := c.persist(ctx, &cfg); err != nil {
		return err
	}

	c.metrics.setTracked(tracked)
	c.logger.Info("Trailing enabled",
		"ticket", cfg.Ticket,
		"symbol", pos.Symbol,
		"trigger_price", cfg.TriggerPrice,
		"trail_sl_only", cfg.TrailSLOnly)
	return nil
}

// Untrack disables trailing for a ticket. Untracking an unknown ticket is
// a no-op.
func (c *Controller) Untrack(ctx context.Context, ticket int64) error {
	c.mu.Lock()
	_, tracked := c.configs[ticket]
	delete(c.configs, ticket)
	remaining := len(c.configs)
	c.mu.Unlock()

	if !tracked {
		return nil
	}

	if err := c.kv.Delete(ctx, ticketKey(ticket)); err != nil {
		return errors.Wrap(err, "trailing", "Untrack", "delete persisted config")
	}

	c.metrics.setTracked(remaining)
	c.logger.Info("Trailing disabled", "ticket", ticket)
	return nil
}

// Tracked returns the current tracking set ordered by ticket.
func (c *Controller) Tracked() []Config {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Config, 0, len(c.configs))
	for _, cfg := range c.configs {
		out = append(out, *cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

// Start launches the cycle loop. Stop cancels future cycles; a cycle in
// progress runs to completion.
func (c *Controller) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return // Already running
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				c.RunCycle(runCtx)
			}
		}
	}()

	c.logger.Info("Trailing controller started", "interval", c.interval)
}

// Stop halts the cycle loop. Stopping a stopped controller is a no-op.
func (c *Controller) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.logger.Info("Trailing controller stopped")
}

// RunCycle executes one adjustment cycle: a single batched position fetch,
// per-ticket adjustment with isolated failures, cleanup of tickets whose
// positions closed, then persistence of the tracking set.
func (c *Controller) RunCycle(ctx context.Context) {
	if !c.terminal.IsConnected() {
		c.logger.Debug("Skipping trailing cycle, terminal not connected")
		c.metrics.recordCycle("skipped")
		return
	}

	positions, err := c.terminal.Positions(ctx)
	if err != nil {
		c.logger.Warn("Trailing cycle degraded, position fetch failed", "error", err)
		c.metrics.recordCycle("degraded")
		return
	}

	byTicket := make(map[int64]*bridge.Position, len(positions))
	for i := range positions {
		byTicket[positions[i].Ticket] = &positions[i]
	}

	c.mu.Lock()
	tickets := make([]int64, 0, len(c.configs))
	for ticket := range c.configs {
		tickets = append(tickets, ticket)
	}
	c.mu.Unlock()
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })

	var closed []int64
	for _, ticket := range tickets {
		pos, open := byTicket[ticket]
		if !open {
			closed = append(closed, ticket)
			continue
		}
		c.adjust(ctx, ticket, pos)
	}

	for _, ticket := range closed {
		c.mu.Lock()
		delete(c.configs, ticket)
		remaining := len(c.configs)
		c.mu.Unlock()

		if err := c.kv.Delete(ctx, ticketKey(ticket)); err != nil {
			c.logger.Warn("Failed to delete config for closed position",
				"ticket", ticket, "error", err)
		}
		c.metrics.setTracked(remaining)
		c.logger.Info("Position closed, trailing removed", "ticket", ticket)
	}

	for _, cfg := range c.Tracked() {
		cfg := cfg
		if err := c.persist(ctx, &cfg); err != nil {
			c.logger.Warn("Failed to persist trailing config",
				"ticket", cfg.Ticket, "error", err)
		}
	}

	c.metrics.recordCycle("run")
}

// adjust applies one cycle's trailing logic to one open position.
func (c *Controller) adjust(ctx context.Context, ticket int64, pos *bridge.Position) {
	c.mu.Lock()
	cfg, tracked := c.configs[ticket]
	if !tracked {
		c.mu.Unlock()
		return
	}

	price := decimal.NewFromFloat(pos.CurrentPrice)
	long := pos.Type.IsLong()

	if !cfg.Activated {
		if !triggerReached(long, pos.CurrentPrice, cfg.TriggerPrice) {
			cfg.LastPrice = pos.CurrentPrice
			c.mu.Unlock()
			return // Still pending
		}
		cfg.Activated = true
		c.logger.Info("Trailing activated",
			"ticket", ticket, "trigger_price", cfg.TriggerPrice, "price", pos.CurrentPrice)
	}

	newSL := candidateStopLoss(cfg, price, long, pos.StopLoss)
	newTP := candidateTakeProfit(cfg, price, long, pos.TakeProfit)
	cfg.LastPrice = pos.CurrentPrice

	slChanged := !newSL.Equal(decimal.NewFromFloat(pos.StopLoss).Round(pricePrecision))
	tpChanged := !newTP.Equal(decimal.NewFromFloat(pos.TakeProfit).Round(pricePrecision))
	c.mu.Unlock()

	if !slChanged && !tpChanged {
		return // Avoid no-op modify calls
	}

	result, err := c.terminal.ModifyPosition(ctx, ticket,
		newSL.InexactFloat64(), newTP.InexactFloat64())
	if err != nil {
		c.metrics.recordFailure()
		c.notify(fmt.Sprintf("Trailing modify failed for ticket %d: %v", ticket, err),
			node.NotifyError)
		c.logger.Warn("Trailing modify call failed", "ticket", ticket, "error", err)
		return // Next cycle is the retry
	}
	if !result.Success {
		c.metrics.recordFailure()
		c.notify(fmt.Sprintf("Trailing modify rejected for ticket %d: %s", ticket, result.Error),
			node.NotifyWarn)
		c.logger.Warn("Trailing modify rejected", "ticket", ticket, "reason", result.Error)
		return
	}

	c.mu.Lock()
	if cfg, ok := c.configs[ticket]; ok {
		cfg.LastAdjustment = time.Now()
	}
	c.mu.Unlock()

	c.metrics.recordAdjustment()
	c.logger.Info("Trailing adjusted",
		"ticket", ticket,
		"stop_loss", newSL.InexactFloat64(),
		"take_profit", newTP.InexactFloat64(),
		"price", pos.CurrentPrice)
}

// triggerReached reports whether price has crossed the trigger in the
// favorable direction for the position's side.
func triggerReached(long bool, price, trigger float64) bool {
	if trigger == 0 {
		return true
	}
	if long {
		return price >= trigger
	}
	return price <= trigger
}

// candidateStopLoss computes the ratcheted stop-loss: for a long position
// the stop only moves up toward price, for a short only down. A zero
// current stop means none is set and any candidate is an improvement.
func candidateStopLoss(cfg *Config, price decimal.Decimal, long bool, currentSL float64) decimal.Decimal {
	dist := distance(price, cfg.SLDistance, cfg.SLDistancePercent)

	var candidate decimal.Decimal
	if long {
		candidate = price.Sub(dist)
	} else {
		candidate = price.Add(dist)
	}
	candidate = candidate.Round(pricePrecision)

	current := decimal.NewFromFloat(currentSL).Round(pricePrecision)
	if currentSL == 0 {
		return candidate
	}
	if long && candidate.LessThanOrEqual(current) {
		return current
	}
	if !long && candidate.GreaterThanOrEqual(current) {
		return current
	}
	return candidate
}

// candidateTakeProfit computes the take-profit: pinned to FixedTP when
// TrailSLOnly is set, otherwise trailing price in both directions, or
// left untouched when no distance is configured.
func candidateTakeProfit(cfg *Config, price decimal.Decimal, long bool, currentTP float64) decimal.Decimal {
	if cfg.TrailSLOnly {
		if cfg.FixedTP != nil {
			return decimal.NewFromFloat(*cfg.FixedTP).Round(pricePrecision)
		}
		return decimal.NewFromFloat(currentTP).Round(pricePrecision)
	}

	if cfg.TPDistance == 0 && cfg.TPDistancePercent == 0 {
		return decimal.NewFromFloat(currentTP).Round(pricePrecision)
	}

	dist := distance(price, cfg.TPDistance, cfg.TPDistancePercent)
	if long {
		return price.Add(dist).Round(pricePrecision)
	}
	return price.Sub(dist).Round(pricePrecision)
}

// distance resolves an absolute-or-percent distance against the current
// price. The percent form is recomputed each cycle so it tracks price.
func distance(price decimal.Decimal, abs, pct float64) decimal.Decimal {
	if pct > 0 {
		return price.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	}
	return decimal.NewFromFloat(abs)
}

func (c *Controller) persist(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "trailing", "persist", "marshal config")
	}
	if err := c.kv.Put(ctx, ticketKey(cfg.Ticket), data); err != nil {
		return errors.Wrap(err, "trailing", "persist", "write config")
	}
	return nil
}

func ticketKey(ticket int64) string {
	return "ticket." + strconv.FormatInt(ticket, 10)
}
