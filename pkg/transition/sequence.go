// Package transition runs the scripted, non-interactive loading screen
// shown between the quiz and the recommendation.
package transition

import (
	"math"
	"sync"
	"time"

	"github.com/zdunecki/skymesh/pkg/timer"
)

// Stage is one message shown for Duration before the next one.
type Stage struct {
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// DefaultStages are the analyzing screen's stages.
func DefaultStages() []Stage {
	return []Stage{
		{Message: "Crunching your household size...", Duration: 800 * time.Millisecond},
		{Message: "Counting all those devices...", Duration: 900 * time.Millisecond},
		{Message: "Finding the speed sweet spot...", Duration: 1000 * time.Millisecond},
		{Message: "Picking your plan...", Duration: 1200 * time.Millisecond},
	}
}

const (
	DefaultSettle = 600 * time.Millisecond
	DefaultNext   = "/recommended"
)

type EventKind string

const (
	EventStage    EventKind = "stage"
	EventNavigate EventKind = "navigate"
)

// Event is emitted when a stage completes, and once more for the terminal
// navigation.
type Event struct {
	Kind     EventKind `json:"kind"`
	Stage    int       `json:"stage"`
	Total    int       `json:"total"`
	Message  string    `json:"message,omitempty"`
	Progress int       `json:"progress"`
	Next     string    `json:"next,omitempty"`
}

// Script is the static description of a sequence.
type Script struct {
	Stages []Stage
	Settle time.Duration
	Next   string
}

func DefaultScript() Script {
	return Script{Stages: DefaultStages(), Settle: DefaultSettle, Next: DefaultNext}
}

// Scaled returns a copy with every delay multiplied by factor. A factor
// of zero or less leaves the script unchanged.
func (s Script) Scaled(factor float64) Script {
	if factor <= 0 || factor == 1 {
		return s
	}
	out := Script{Settle: scale(s.Settle, factor), Next: s.Next}
	for _, st := range s.Stages {
		out.Stages = append(out.Stages, Stage{Message: st.Message, Duration: scale(st.Duration, factor)})
	}
	return out
}

func scale(d time.Duration, factor float64) time.Duration {
	return time.Duration(math.Round(float64(d) * factor))
}

// Total is the time from Start to the navigation event.
func (s Script) Total() time.Duration {
	total := s.Settle
	for _, st := range s.Stages {
		total += st.Duration
	}
	return total
}

// Sequence plays a Script. Stage i completes Duration after stage i-1;
// Settle after the last one a single navigation event is emitted and the
// sequence is done. Cancel defuses it: once Cancel returns, emit is never
// called again and no navigation happens.
//
// emit runs on a timer goroutine with the sequence lock held and must not
// call Cancel.
type Sequence struct {
	mu       sync.Mutex
	script   Script
	sched    *timer.Scheduler
	emit     func(Event)
	done     chan struct{}
	finished bool
	stage    int
}

// Start begins playing script immediately.
func Start(script Script, emit func(Event)) *Sequence {
	s := &Sequence{
		script: script,
		sched:  timer.New(),
		emit:   emit,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.scheduleLocked()
	s.mu.Unlock()
	return s
}

func (s *Sequence) scheduleLocked() {
	if s.stage < len(s.script.Stages) {
		s.sched.After(s.script.Stages[s.stage].Duration, s.completeStage)
		return
	}
	s.sched.After(s.script.Settle, s.navigate)
}

func (s *Sequence) completeStage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	total := len(s.script.Stages)
	s.stage++
	s.emit(Event{
		Kind:     EventStage,
		Stage:    s.stage,
		Total:    total,
		Message:  s.script.Stages[s.stage-1].Message,
		Progress: s.stage * 100 / total,
	})
	s.scheduleLocked()
}

func (s *Sequence) navigate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.emit(Event{
		Kind:     EventNavigate,
		Stage:    s.stage,
		Total:    len(s.script.Stages),
		Progress: 100,
		Next:     s.script.Next,
	})
	s.finishLocked()
}

func (s *Sequence) finishLocked() {
	s.finished = true
	s.sched.Stop()
	close(s.done)
}

// Cancel stops the sequence. It is safe to call more than once and after
// the sequence finished.
func (s *Sequence) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finishLocked()
}

// Done is closed when the sequence navigated or was cancelled.
func (s *Sequence) Done() <-chan struct{} { return s.done }

// Stage is the number of completed stages.
func (s *Sequence) Stage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}
