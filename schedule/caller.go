package schedule

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/theater/events"
	"github.com/dohr-michael/theater/theater"
)

// DefaultCooldown is the minimum interval between two triggers of the same
// curtain call.
const DefaultCooldown = 60 * time.Second

// CurtainCall describes one scheduled scene run.
type CurtainCall struct {
	ID       string
	Title    string
	CronSpec string
	// Agent performs the scene; nil runs it as a free scene on the troupe.
	Agent    *theater.Agent
	Selector any
	Params   []any
	Cooldown time.Duration
	MaxRuns  int
	Enabled  bool
}

// runtimeCall is the internal state of a registered curtain call.
type runtimeCall struct {
	call     CurtainCall
	cron     *CronExpr
	lastRun  time.Time
	runCount int
}

// Config holds dependencies for a Caller.
type Config struct {
	Theater *theater.Theater
	Bus     *events.Bus // optional
	Calls   []CurtainCall
}

// Caller owns curtain calls and triggers them on a minute ticker.
type Caller struct {
	th  *theater.Theater
	bus *events.Bus

	mu    sync.Mutex
	calls map[string]*runtimeCall

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Caller and registers the entries from cfg.Calls right away;
// invalid entries are logged and skipped.
func New(cfg Config) *Caller {
	c := &Caller{
		th:    cfg.Theater,
		bus:   cfg.Bus,
		calls: make(map[string]*runtimeCall),
		done:  make(chan struct{}),
	}
	for _, call := range cfg.Calls {
		if err := c.Add(call); err != nil {
			slog.Warn("schedule: skipping curtain call", "title", call.Title, "error", err)
		}
	}
	return c
}

// Start begins the cron ticker.
func (c *Caller) Start() {
	c.wg.Add(1)
	go c.cronLoop()
	slog.Info("schedule: caller started", "calls", len(c.calls))
}

// Stop halts the ticker.
func (c *Caller) Stop() {
	close(c.done)
	c.wg.Wait()
	slog.Info("schedule: caller stopped")
}

// Add registers a curtain call. A missing ID is generated; a zero cooldown
// takes the default.
func (c *Caller) Add(call CurtainCall) error {
	if call.CronSpec == "" {
		return fmt.Errorf("schedule: curtain call %q needs a cron spec", call.Title)
	}
	if call.Selector == nil {
		return fmt.Errorf("schedule: curtain call %q needs a selector", call.Title)
	}
	expr, err := ParseCron(call.CronSpec)
	if err != nil {
		return err
	}
	if call.ID == "" {
		call.ID = GenerateCallID()
	}
	if call.Cooldown <= 0 {
		call.Cooldown = DefaultCooldown
	}

	c.mu.Lock()
	c.calls[call.ID] = &runtimeCall{call: call, cron: expr}
	c.mu.Unlock()

	slog.Info("schedule: added curtain call", "id", call.ID, "title", call.Title, "cron", call.CronSpec)
	return nil
}

// Remove deletes a curtain call by ID.
func (c *Caller) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.calls[id]; !ok {
		return fmt.Errorf("schedule: curtain call not found: %s", id)
	}
	delete(c.calls, id)
	return nil
}

// Calls returns a snapshot of the registered curtain calls.
func (c *Caller) Calls() []CurtainCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]CurtainCall, 0, len(c.calls))
	for _, rc := range c.calls {
		result = append(result, rc.call)
	}
	return result
}

func (c *Caller) cronLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

// tick triggers every due curtain call.
func (c *Caller) tick(now time.Time) {
	c.mu.Lock()
	var due []*runtimeCall
	for _, rc := range c.calls {
		if !rc.call.Enabled {
			continue
		}
		if rc.call.MaxRuns > 0 && rc.runCount >= rc.call.MaxRuns {
			continue
		}
		if !rc.lastRun.IsZero() && now.Sub(rc.lastRun) < rc.call.Cooldown {
			continue
		}
		if rc.cron.Matches(now) {
			rc.lastRun = now
			rc.runCount++
			due = append(due, rc)
		}
	}
	c.mu.Unlock()

	for _, rc := range due {
		c.trigger(rc.call)
	}
}

func (c *Caller) trigger(call CurtainCall) {
	agent := call.Agent
	if agent == nil {
		agent = c.th.Troupe()
	}
	agent.Run(call.Selector, call.Params...)
	slog.Debug("schedule: curtain call", "id", call.ID, "title", call.Title)

	if c.bus != nil {
		c.bus.Publish(events.NewEvent(events.EventCurtainCall, events.SourceSchedule, map[string]any{
			"id":    call.ID,
			"title": call.Title,
			"agent": agent.ID(),
		}))
	}
}

// GenerateCallID creates a unique curtain-call identifier.
func GenerateCallID() string {
	u := uuid.New().String()
	return "call_" + strings.ReplaceAll(u[:8], "-", "")
}
