package dsl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCondition(t *testing.T) {
	bools := map[string]bool{"avc": true, "postalSame": true}
	vars := map[string]string{"postalSame": "no", "router": "Tenda v12"}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true},
		{"avc", true},
		{"!avc", false},
		{"missing", false},
		{"postalSame == no", true},
		{"postalSame == 'no'", true},
		{"postalSame != no", false},
		{"postalSame == yes || avc", true},
		{"postalSame == yes && avc", false},
		{`router == "Tenda v12"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.expr, bools, vars))
		})
	}
}

func TestRenderTemplate_LongestKeyFirst(t *testing.T) {
	out := RenderTemplate("{postal} / {postalCity}", map[string]string{
		"postal":     "P",
		"postalCity": "Brisbane",
	})
	assert.Equal(t, "P / Brisbane", out)
}

func TestLoadFlow(t *testing.T) {
	data := []byte(`
flow: demo
steps:
  - id: one
    kind: choice
    field: pick
    auto_advance: true
    options:
      - value: a
        label: A
  - id: two
    kind: text
    fields:
      - key: first
      - key: last
    require: [first]
`)
	flow, err := LoadFlow(data)
	require.NoError(t, err)
	require.Len(t, flow.Steps, 2)
	assert.Equal(t, []string{"pick"}, flow.Steps[0].Owned())
	assert.Equal(t, []string{"first", "last"}, flow.Steps[1].Owned())
	assert.True(t, flow.Steps[0].AutoAdvance)
}

func TestLoadFlow_Rejects(t *testing.T) {
	_, err := LoadFlow(nil)
	assert.Error(t, err)

	_, err = LoadFlow([]byte("flow: x\nsteps:\n  - id: a\n  - id: a\n"))
	assert.ErrorContains(t, err, "duplicate step id")

	_, err = LoadFlow([]byte("flow: x\nunknown: 1\n"))
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("800ms")
	require.NoError(t, err)
	assert.Equal(t, 800*time.Millisecond, d)

	d, err = ParseDuration("200")
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, d)

	_, err = ParseDuration("soon")
	assert.Error(t, err)

	assert.Equal(t, time.Second, DurationOr("", time.Second))
}
