// Package clock drives periodic re-evaluation of a running session on the
// Bubble Tea event loop.
package clock

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// DefaultFast is the countdown cadence.
	DefaultFast = time.Second
	// DefaultSlow is the live score refresh cadence.
	DefaultSlow = 5 * time.Second
)

// Kind identifies which cadence produced a tick.
type Kind int

const (
	Fast Kind = iota
	Slow
)

func (k Kind) String() string {
	if k == Slow {
		return "slow"
	}
	return "fast"
}

// TickMsg is delivered to the program for every scheduled tick.
type TickMsg struct {
	Kind Kind
	Gen  uint64
	At   time.Time
}

// Clock owns two periodic tasks. Each Start begins a new generation; ticks
// from earlier generations or a stopped clock are rejected by Accept, so a
// task never outlives the session it was started for.
type Clock struct {
	fast    time.Duration
	slow    time.Duration
	gen     uint64
	running bool
}

// New returns a stopped clock. Non-positive intervals use the defaults.
func New(fast, slow time.Duration) *Clock {
	if fast <= 0 {
		fast = DefaultFast
	}
	if slow <= 0 {
		slow = DefaultSlow
	}
	return &Clock{fast: fast, slow: slow}
}

// Start begins both periodic tasks.
func (c *Clock) Start() tea.Cmd {
	c.gen++
	c.running = true
	return tea.Batch(c.schedule(Fast), c.schedule(Slow))
}

// Stop cancels both tasks. Ticks already in flight are dropped by Accept.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.gen++
}

// Running reports whether the clock is scheduling ticks.
func (c *Clock) Running() bool {
	return c.running
}

// Accept reports whether msg belongs to the live generation.
func (c *Clock) Accept(msg TickMsg) bool {
	return c.running && msg.Gen == c.gen
}

// Next schedules the following tick of kind, or nothing when stopped.
func (c *Clock) Next(kind Kind) tea.Cmd {
	if !c.running {
		return nil
	}
	return c.schedule(kind)
}

// Interval returns the period of kind.
func (c *Clock) Interval(kind Kind) time.Duration {
	if kind == Slow {
		return c.slow
	}
	return c.fast
}

func (c *Clock) schedule(kind Kind) tea.Cmd {
	gen := c.gen
	return tea.Tick(c.Interval(kind), func(t time.Time) tea.Msg {
		return TickMsg{Kind: kind, Gen: gen, At: t}
	})
}
