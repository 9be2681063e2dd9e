// Package wizard implements the step navigation and answer state of a
// multi-step intake flow.
//
// An Engine owns a fixed, ordered list of steps, the active step, the
// direction of the last transition and a mutable answer record. The visible
// sequence is recomputed from each step's visibility predicate on every read,
// so a predicate that depends on a field that just changed takes effect
// immediately. Navigation never fails: indices are clamped and invalid
// advances are ignored.
package wizard

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoSteps        = errors.New("wizard has no steps")
	ErrDuplicateStep  = errors.New("duplicate step id")
	ErrAmbiguousOwner = errors.New("field has more than one owning step")
	ErrUnownedField   = errors.New("review row edits a field no step owns")
)

// Direction records whether the last transition moved forward or backward.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// ReviewRow is one summary line on a review step.
type ReviewRow struct {
	Label string
	Value func(Answers) string
	// Edit is the field key whose owning step the row's edit action opens.
	// Empty means the row is read-only.
	Edit string
}

type Option func(*Engine)

// WithAnswers seeds the answer record, e.g. with values from an upstream screen.
func WithAnswers(seed Answers) Option {
	return func(e *Engine) {
		for k, v := range seed {
			if nv, ok := normalize(v); ok {
				e.answers[k] = nv
			}
		}
	}
}

// WithReview attaches summary rows for the review step.
func WithReview(rows ...ReviewRow) Option {
	return func(e *Engine) {
		e.review = append(e.review, rows...)
	}
}

type Engine struct {
	steps     []Step
	owners    map[string]int
	review    []ReviewRow
	active    int
	direction Direction
	answers   Answers
}

// New validates the step list and places the cursor on the first visible step.
func New(steps []Step, opts ...Option) (*Engine, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}

	e := &Engine{
		steps:     append([]Step(nil), steps...),
		owners:    make(map[string]int),
		direction: Forward,
		answers:   make(Answers),
	}

	ids := make(map[string]bool, len(steps))
	for i, step := range e.steps {
		if ids[step.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, step.ID)
		}
		ids[step.ID] = true
		for _, key := range step.Owns {
			if prev, ok := e.owners[key]; ok {
				return nil, fmt.Errorf("%w: %q claimed by %s and %s", ErrAmbiguousOwner, key, e.steps[prev].ID, step.ID)
			}
			e.owners[key] = i
		}
	}

	for _, opt := range opts {
		opt(e)
	}

	for _, row := range e.review {
		if row.Edit == "" {
			continue
		}
		if _, ok := e.owners[row.Edit]; !ok {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnownedField, row.Edit, row.Label)
		}
	}

	e.relocate()
	return e, nil
}

// visible returns the indices of steps whose visibility predicate holds.
func (e *Engine) visible() []int {
	out := make([]int, 0, len(e.steps))
	for i, step := range e.steps {
		if step.isVisible(e.answers) {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) position(vis []int) int {
	for pos, i := range vis {
		if i == e.active {
			return pos
		}
	}
	return -1
}

// relocate moves the cursor off a step that has become hidden: forward to
// the next visible step, or back to the previous one if none follows.
func (e *Engine) relocate() {
	if e.steps[e.active].isVisible(e.answers) {
		return
	}
	for i := e.active + 1; i < len(e.steps); i++ {
		if e.steps[i].isVisible(e.answers) {
			e.active = i
			e.direction = Forward
			return
		}
	}
	for i := e.active - 1; i >= 0; i-- {
		if e.steps[i].isVisible(e.answers) {
			e.active = i
			e.direction = Backward
			return
		}
	}
}

// ActiveIndex is the cursor's position in the visible sequence, or -1 when
// no step is visible.
func (e *Engine) ActiveIndex() int {
	return e.position(e.visible())
}

// VisibleLen is the length of the current visible sequence.
func (e *Engine) VisibleLen() int {
	return len(e.visible())
}

func (e *Engine) Direction() Direction { return e.direction }

// Current returns the active step definition.
func (e *Engine) Current() Step { return e.steps[e.active] }

// Steps returns every step definition in order, hidden ones included.
func (e *Engine) Steps() []Step { return append([]Step(nil), e.steps...) }

// VisibleSteps returns the visible sequence.
func (e *Engine) VisibleSteps() []Step {
	vis := e.visible()
	out := make([]Step, 0, len(vis))
	for _, i := range vis {
		out = append(out, e.steps[i])
	}
	return out
}

// Answers returns a copy of the answer record.
func (e *Engine) Answers() Answers { return e.answers.Clone() }

func (e *Engine) Value(key string) any { return e.answers[key] }

// GoTo moves the cursor to a position in the visible sequence, clamping
// out-of-range targets.
func (e *Engine) GoTo(target int) {
	vis := e.visible()
	if len(vis) == 0 {
		return
	}
	if target < 0 {
		target = 0
	}
	if target > len(vis)-1 {
		target = len(vis) - 1
	}
	pos := e.position(vis)
	switch {
	case target > pos:
		e.direction = Forward
	case target < pos:
		e.direction = Backward
	default:
		return
	}
	e.active = vis[target]
}

// CanAdvance reports whether the active step's validity predicate holds.
func (e *Engine) CanAdvance() bool {
	return e.steps[e.active].isValid(e.answers)
}

// Advance moves to the next visible step. It is refused while the active
// step is invalid and reports whether the cursor moved.
func (e *Engine) Advance() bool {
	if !e.CanAdvance() {
		return false
	}
	before := e.active
	e.GoTo(e.ActiveIndex() + 1)
	return e.active != before
}

// Retreat moves to the previous visible step regardless of validity.
func (e *Engine) Retreat() bool {
	before := e.active
	e.GoTo(e.ActiveIndex() - 1)
	return e.active != before
}

// CanFinish reports whether the cursor is on the last visible step and
// every visible step is valid. GoTo can pass invalid steps.
func (e *Engine) CanFinish() bool {
	vis := e.visible()
	if len(vis) == 0 || e.position(vis) != len(vis)-1 {
		return false
	}
	_, invalid := e.FirstInvalid()
	return !invalid
}

// FirstInvalid returns the visible position of the first step whose
// validity predicate does not hold.
func (e *Engine) FirstInvalid() (int, bool) {
	for pos, i := range e.visible() {
		if !e.steps[i].isValid(e.answers) {
			return pos, true
		}
	}
	return -1, false
}

// SetField writes one answer. A nil value removes the key. It reports
// whether the active step asks to auto-advance now: the step declares it,
// the write did not relocate the cursor, and the step is valid.
func (e *Engine) SetField(key string, value any) bool {
	before := e.active
	e.write(key, value)
	e.relocate()
	step := e.steps[e.active]
	return e.active == before && step.AutoAdvance && step.isValid(e.answers)
}

// SetFields writes several answers as one mutation; visibility is
// re-evaluated once, after all of them are applied.
func (e *Engine) SetFields(values Answers) {
	for k, v := range values {
		e.write(k, v)
	}
	e.relocate()
}

func (e *Engine) write(key string, value any) {
	nv, ok := normalize(value)
	if !ok {
		delete(e.answers, key)
		return
	}
	e.answers[key] = nv
}

// Owner returns the step that canonically owns key.
func (e *Engine) Owner(key string) (Step, bool) {
	i, ok := e.owners[key]
	if !ok {
		return Step{}, false
	}
	return e.steps[i], true
}

// JumpToFieldOwner moves the cursor to the step owning key. When that step
// is hidden the cursor lands on the nearest visible step before it, which is
// the step controlling its visibility in every flow we ship. Unknown keys
// are ignored.
func (e *Engine) JumpToFieldOwner(key string) bool {
	idx, ok := e.owners[key]
	if !ok {
		return false
	}
	vis := e.visible()
	if len(vis) == 0 {
		return false
	}
	target := -1
	for pos, i := range vis {
		if i <= idx {
			target = pos
		}
	}
	if target < 0 {
		target = 0
	}
	e.GoTo(target)
	return true
}

// Progress is round(100 * (position+1) / visible length).
func (e *Engine) Progress() int {
	vis := e.visible()
	pos := e.position(vis)
	if len(vis) == 0 || pos < 0 {
		return 0
	}
	return int(math.Round(100 * float64(pos+1) / float64(len(vis))))
}

// View is everything a host needs to render the active step.
type View struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle"`
	Kind            Kind      `json:"kind"`
	Field           string    `json:"field,omitempty"`
	Fields          []Field   `json:"fields,omitempty"`
	Options         []Choice  `json:"options,omitempty"`
	Hint            string    `json:"hint,omitempty"`
	ContinueLabel   string    `json:"continueLabel,omitempty"`
	Skippable       bool      `json:"skippable,omitempty"`
	AutoAdvance     bool      `json:"autoAdvance,omitempty"`
	Position        int       `json:"position"`
	Total           int       `json:"total"`
	ProgressPercent int       `json:"progressPercent"`
	IsFirst         bool      `json:"isFirst"`
	IsLast          bool      `json:"isLast"`
	CanAdvance      bool      `json:"canAdvance"`
	Direction       Direction `json:"direction"`
}

func (e *Engine) View() View {
	vis := e.visible()
	pos := e.position(vis)
	step := e.steps[e.active]
	return View{
		ID:              step.ID,
		Title:           step.Title,
		Subtitle:        step.Subtitle,
		Kind:            step.Kind,
		Field:           step.Field,
		Fields:          append([]Field(nil), step.Fields...),
		Options:         append([]Choice(nil), step.Options...),
		Hint:            step.Hint,
		ContinueLabel:   step.ContinueLabel,
		Skippable:       step.Skippable,
		AutoAdvance:     step.AutoAdvance,
		Position:        pos,
		Total:           len(vis),
		ProgressPercent: e.Progress(),
		IsFirst:         pos == 0,
		IsLast:          len(vis) > 0 && pos == len(vis)-1,
		CanAdvance:      e.CanAdvance(),
		Direction:       e.direction,
	}
}
