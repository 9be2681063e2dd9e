package wizard

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

func quizSteps() []Step {
	return []Step{
		{ID: "household", Field: "household", Owns: []string{"household"}, Kind: KindChoice, AutoAdvance: true, Valid: RequireFilled("household")},
		{ID: "devices", Field: "devices", Owns: []string{"devices"}, Kind: KindChoice, AutoAdvance: true, Valid: RequireFilled("devices")},
		{ID: "usage", Field: "usage", Owns: []string{"usage"}, Kind: KindMulti, Valid: RequireFilled("usage")},
	}
}

func newDriver(t *testing.T, opts ...DriverOption) *Driver {
	t.Helper()
	e, err := New(quizSteps())
	require.NoError(t, err)
	d := NewDriver(e, opts...)
	t.Cleanup(d.Close)
	return d
}

func TestDriver_AutoAdvanceAfterDelay(t *testing.T) {
	changed := make(chan View, 1)
	d := newDriver(t,
		WithAutoAdvanceDelay(10*time.Millisecond),
		WithOnChange(func(v View) { changed <- v }),
	)

	v := d.Set("household", "Duo")
	assert.Equal(t, "household", v.ID, "selection is recorded before the transition")

	select {
	case v := <-changed:
		assert.Equal(t, "devices", v.ID)
		assert.Equal(t, Forward, v.Direction)
	case <-time.After(time.Second):
		t.Fatal("auto-advance did not fire")
	}
	assert.Equal(t, "devices", d.View().ID)
}

func TestDriver_ZeroDelayAdvancesImmediately(t *testing.T) {
	d := newDriver(t, WithAutoAdvanceDelay(0))
	v := d.Set("household", "Solo")
	assert.Equal(t, "devices", v.ID)
}

func TestDriver_CloseDefusesPendingAdvance(t *testing.T) {
	var mu sync.Mutex
	fired := false
	d := newDriver(t,
		WithAutoAdvanceDelay(20*time.Millisecond),
		WithOnChange(func(View) {
			mu.Lock()
			fired = true
			mu.Unlock()
		}),
	)

	d.Set("household", "Busy")
	d.Close()
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired)
	assert.Equal(t, "household", d.View().ID)

	v := d.Set("devices", "1-5")
	assert.Equal(t, "household", v.ID, "closed driver ignores mutations")
	_, ok := d.Answers()["devices"]
	assert.False(t, ok)
}

func TestDriver_ManualNavigationCancelsPending(t *testing.T) {
	changed := make(chan View, 1)
	d := newDriver(t,
		WithAutoAdvanceDelay(20*time.Millisecond),
		WithOnChange(func(v View) { changed <- v }),
	)

	d.Set("household", "Duo")
	assert.True(t, d.Pending())
	v := d.Advance()
	require.Equal(t, "devices", v.ID)
	assert.False(t, d.Pending())

	select {
	case <-changed:
		t.Fatal("superseded auto-advance fired")
	case <-time.After(60 * time.Millisecond):
	}
	assert.Equal(t, "devices", d.View().ID)
}

func TestDriver_ToggleAndDraft(t *testing.T) {
	d := newDriver(t, WithAutoAdvanceDelay(0))
	d.Set("household", "Duo")
	d.Set("devices", "6-10")

	d.Toggle("usage", "Gaming")
	v := d.Toggle("usage", "Streaming")
	assert.Equal(t, "usage", v.ID)
	assert.True(t, v.CanAdvance)
	assert.Equal(t, []string{"Gaming", "Streaming"}, d.Answers().List("usage"))

	values, ok := d.OpenDraft("household")
	require.True(t, ok)
	assert.Equal(t, "Duo", values.String("household"))

	values, ok = d.SetDraft("household", "Chaos")
	require.True(t, ok)
	assert.Equal(t, "Chaos", values.String("household"))
	assert.Equal(t, "Duo", d.Answers().String("household"))

	_, ok = d.CommitDraft()
	require.True(t, ok)
	assert.Equal(t, "Chaos", d.Answers().String("household"))

	_, ok = d.CommitDraft()
	assert.False(t, ok)
}

func TestDriver_Edit(t *testing.T) {
	d := newDriver(t, WithAutoAdvanceDelay(0))
	d.Set("household", "Duo")
	d.Set("devices", "6-10")

	v := d.Edit("household")
	assert.Equal(t, "household", v.ID)
	assert.Equal(t, Backward, v.Direction)
}

func TestDriver_StaleFireKeepsNewerSchedule(t *testing.T) {
	d := newDriver(t, WithAutoAdvanceDelay(time.Hour))

	d.Set("household", "Duo")
	d.mu.Lock()
	stale := d.gen
	d.mu.Unlock()

	d.Set("household", "Solo")
	d.fireAutoAdvance(stale)

	assert.True(t, d.Pending(), "the newer schedule is still pending")
	assert.Equal(t, "household", d.View().ID, "a superseded fire does not advance")
}

func TestDriver_CheckFinishMovesToFirstInvalidStep(t *testing.T) {
	d := newDriver(t, WithAutoAdvanceDelay(time.Hour))

	d.GoTo(99)
	d.Toggle("usage", "Gaming")
	require.Equal(t, "usage", d.View().ID)

	v, ok := d.CheckFinish()
	assert.False(t, ok)
	assert.Equal(t, "household", v.ID)

	d.Set("household", "Duo")
	d.Set("devices", "1-5")
	d.GoTo(99)
	_, ok = d.CheckFinish()
	assert.True(t, ok)
}
