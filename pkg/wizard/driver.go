package wizard

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/timer"
)

// DefaultAutoAdvanceDelay is the pause between a single-choice selection
// and the transition it triggers.
const DefaultAutoAdvanceDelay = 200 * time.Millisecond

type DriverOption func(*Driver)

func WithAutoAdvanceDelay(d time.Duration) DriverOption {
	return func(dr *Driver) {
		dr.delay = d
	}
}

// WithOnChange registers a callback for transitions the user did not
// trigger directly, i.e. auto-advances. It runs on the timer goroutine
// without the driver lock held.
func WithOnChange(fn func(View)) DriverOption {
	return func(dr *Driver) {
		dr.onChange = fn
	}
}

func WithName(name string) DriverOption {
	return func(dr *Driver) {
		dr.name = name
	}
}

// Driver serialises access to an Engine for hosts with more than one
// goroutine (timers, HTTP handlers) and owns the deferred auto-advance.
// Close tears it down; a closed driver ignores every mutation and no
// pending auto-advance fires after it.
type Driver struct {
	mu       sync.Mutex
	engine   *Engine
	sched    *timer.Scheduler
	pending  timer.Cancel
	gen      uint64
	delay    time.Duration
	onChange func(View)
	draft    *Draft
	closed   bool
	name     string
}

func NewDriver(e *Engine, opts ...DriverOption) *Driver {
	d := &Driver{
		engine: e,
		sched:  timer.New(),
		delay:  DefaultAutoAdvanceDelay,
		name:   "wizard",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.View()
}

func (d *Driver) Answers() Answers {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Answers()
}

func (d *Driver) ReviewRows() []RowView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.ReviewRows()
}

func (d *Driver) VisibleSteps() []Step {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.VisibleSteps()
}

// Step looks up a step definition by id, hidden steps included.
func (d *Driver) Step(id string) (Step, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.engine.steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}

func (d *Driver) CanFinish() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.CanFinish()
}

// CheckFinish reports whether the flow can finish. When it cannot because
// a visible step is invalid, the cursor moves to the first such step.
func (d *Driver) CheckFinish() (View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.engine.CanFinish() {
		return d.engine.View(), true
	}
	if pos, ok := d.engine.FirstInvalid(); ok && !d.closed {
		d.cancelPendingLocked()
		d.engine.GoTo(pos)
	}
	return d.engine.View(), false
}

// Pending reports whether an auto-advance is scheduled.
func (d *Driver) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Delay is the configured auto-advance delay.
func (d *Driver) Delay() time.Duration { return d.delay }

// cancelPendingLocked drops a scheduled auto-advance; manual navigation
// supersedes it. Bumping gen also defuses a callback already waiting on
// the lock.
func (d *Driver) cancelPendingLocked() {
	if d.pending != nil {
		d.pending()
		d.pending = nil
	}
	d.gen++
}

func (d *Driver) navigate(fn func(*Engine)) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return d.engine.View()
	}
	d.cancelPendingLocked()
	before := d.engine.View()
	fn(d.engine)
	after := d.engine.View()
	if before.ID != after.ID {
		zap.L().Debug("wizard transition",
			zap.String("wizard", d.name),
			zap.String("from", before.ID),
			zap.String("to", after.ID),
			zap.Int("direction", int(after.Direction)),
		)
	}
	return after
}

func (d *Driver) Advance() View {
	return d.navigate(func(e *Engine) { e.Advance() })
}

func (d *Driver) Retreat() View {
	return d.navigate(func(e *Engine) { e.Retreat() })
}

func (d *Driver) GoTo(i int) View {
	return d.navigate(func(e *Engine) { e.GoTo(i) })
}

// Edit is the review step's in-place edit action.
func (d *Driver) Edit(key string) View {
	return d.navigate(func(e *Engine) { e.JumpToFieldOwner(key) })
}

// Set writes a field and, when the active step asks for it, schedules an
// auto-advance. A newer Set replaces a pending one.
func (d *Driver) Set(key string, value any) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(key, value)
}

func (d *Driver) setLocked(key string, value any) View {
	if d.closed {
		return d.engine.View()
	}
	d.cancelPendingLocked()
	if !d.engine.SetField(key, value) {
		return d.engine.View()
	}
	if d.delay <= 0 {
		d.engine.Advance()
		return d.engine.View()
	}
	gen := d.gen
	d.pending = d.sched.After(d.delay, func() { d.fireAutoAdvance(gen) })
	return d.engine.View()
}

func (d *Driver) fireAutoAdvance(gen uint64) {
	d.mu.Lock()
	if d.closed || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	stepID := d.engine.Current().ID
	moved := d.engine.Advance()
	view := d.engine.View()
	onChange := d.onChange
	d.mu.Unlock()

	if moved {
		zap.L().Debug("wizard auto-advanced", zap.String("wizard", d.name), zap.String("from", stepID), zap.String("to", view.ID))
		if onChange != nil {
			onChange(view)
		}
	}
}

// Toggle flips item in the list stored at key.
func (d *Driver) Toggle(key, item string) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(key, Toggle(d.engine.answers.List(key), item))
}

// OpenDraft starts a modal edit over the fields owned by key's owner,
// replacing any draft already open.
func (d *Driver) OpenDraft(key string) (Answers, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, false
	}
	if d.draft != nil {
		d.draft.Cancel()
	}
	d.draft = d.engine.OpenDraftFor(key)
	if d.draft == nil {
		return nil, false
	}
	return d.draft.Values(), true
}

func (d *Driver) SetDraft(key string, value any) (Answers, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.draft == nil {
		return nil, false
	}
	d.draft.Set(key, value)
	return d.draft.Values(), true
}

func (d *Driver) CommitDraft() (View, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.draft == nil {
		return d.engine.View(), false
	}
	ok := d.draft.Commit()
	d.draft = nil
	return d.engine.View(), ok
}

func (d *Driver) CancelDraft() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft != nil {
		d.draft.Cancel()
		d.draft = nil
	}
}

// Close cancels any pending auto-advance and detaches the driver.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.pending = nil
	d.sched.Stop()
}
