package transition

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func fastScript() Script {
	return DefaultScript().Scaled(0.01)
}

func TestSequence_PlaysStagesThenNavigatesOnce(t *testing.T) {
	rec := &recorder{}
	seq := Start(fastScript(), rec.emit)

	select {
	case <-seq.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("sequence did not finish")
	}
	time.Sleep(20 * time.Millisecond)

	events := rec.snapshot()
	require.Len(t, events, 5)
	for i, ev := range events[:4] {
		assert.Equal(t, EventStage, ev.Kind)
		assert.Equal(t, i+1, ev.Stage)
		assert.Equal(t, DefaultStages()[i].Message, ev.Message)
		assert.Equal(t, (i+1)*25, ev.Progress)
	}
	last := events[4]
	assert.Equal(t, EventNavigate, last.Kind)
	assert.Equal(t, DefaultNext, last.Next)
	assert.Equal(t, 100, last.Progress)

	seq.Cancel()
	assert.Len(t, rec.snapshot(), 5)
}

func TestSequence_CancelBeforeNavigation(t *testing.T) {
	rec := &recorder{}
	seq := Start(Script{
		Stages: []Stage{{Message: "one", Duration: 5 * time.Millisecond}, {Message: "two", Duration: time.Hour}},
		Settle: time.Millisecond,
		Next:   "/recommended",
	}, rec.emit)

	require.Eventually(t, func() bool { return seq.Stage() == 1 }, time.Second, time.Millisecond)
	seq.Cancel()
	seq.Cancel()

	select {
	case <-seq.Done():
	default:
		t.Fatal("cancel did not close Done")
	}
	for _, ev := range rec.snapshot() {
		assert.NotEqual(t, EventNavigate, ev.Kind)
	}
	assert.Len(t, rec.snapshot(), 1)
}

func TestSequence_CancelImmediately(t *testing.T) {
	rec := &recorder{}
	seq := Start(fastScript(), rec.emit)
	seq.Cancel()

	time.Sleep(fastScript().Total() + 20*time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestScript(t *testing.T) {
	s := DefaultScript()
	assert.Equal(t, 4500*time.Millisecond, s.Total())

	half := s.Scaled(0.5)
	assert.Equal(t, 2250*time.Millisecond, half.Total())
	assert.Equal(t, 400*time.Millisecond, half.Stages[0].Duration)
	assert.Equal(t, s, s.Scaled(0))
}

func TestCarousel_RotatesAndWraps(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	c := NewCarousel(3, 5*time.Millisecond, func(i int) {
		mu.Lock()
		seen = append(seen, i)
		mu.Unlock()
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 4
	}, time.Second, time.Millisecond)
	c.Cancel()

	mu.Lock()
	got := append([]int(nil), seen[:4]...)
	mu.Unlock()
	assert.Equal(t, []int{1, 2, 0, 1}, got)
}

func TestCarousel_CancelStops(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	c := NewCarousel(5, 10*time.Millisecond, func(int) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	c.Cancel()
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
	assert.Equal(t, 0, c.Current())
}

func TestCarousel_SingleItemNeverRotates(t *testing.T) {
	c := NewCarousel(1, time.Millisecond, nil)
	defer c.Cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, c.Current())
}
