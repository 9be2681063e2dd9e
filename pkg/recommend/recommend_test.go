package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_SingleUsage(t *testing.T) {
	rec := Derive(Snapshot{Household: HouseholdDuo, Devices: Devices6to10, Usage: []string{UsageStreaming}})

	assert.Equal(t, 1, strings.Count(rec.Sentence, UsageStreaming))
	for _, other := range UsageLabels() {
		if other == UsageStreaming {
			continue
		}
		assert.NotContains(t, rec.Sentence, other)
	}
	assert.Equal(t,
		"With 2 people and 6-10 devices, Fibre Plus balances speed and value for Streaming. The plan focuses on smooth HD streaming, so your household stays connected without slowdowns.",
		rec.Sentence)
	assert.Equal(t, "plus", rec.Plan.ID)
	assert.Equal(t, "2 people", rec.PeopleLabel)
	assert.Equal(t, "6-10 devices", rec.DevicesLabel)
}

func TestDerive_EmptySnapshotMatchesDefault(t *testing.T) {
	want := Derive(Default())

	assert.Equal(t, want.Sentence, Derive(Snapshot{}).Sentence)
	assert.Equal(t, want.Sentence, Derive(Load([]byte("{}"))).Sentence)
	assert.Equal(t, want.Sentence, Derive(Load(nil)).Sentence)
}

func TestDerive_Deterministic(t *testing.T) {
	s := Snapshot{Household: HouseholdBusy, Devices: Devices11to15, Usage: []string{UsageGaming, UsageVideoCalls}}
	assert.Equal(t, Derive(s), Derive(s))
}

func TestDerive_CitesAtMostThree(t *testing.T) {
	rec := Derive(Snapshot{Household: HouseholdBusy, Devices: Devices11to15, Usage: UsageLabels()})

	assert.Len(t, rec.Needs, 3)
	assert.Equal(t, []string{UsageVideoCalls, UsageBrowsing, UsageGaming}, rec.Tags)
	assert.Contains(t, rec.Sentence, "for Video calls, Browsing & email and Gaming.")
	assert.NotContains(t, rec.Sentence, UsageStreaming)
}

func TestJoinNatural(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"A"}, "A"},
		{[]string{"A", "B"}, "A and B"},
		{[]string{"A", "B", "C"}, "A, B and C"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinNatural(tt.items))
	}
}

func TestSuggestPlan(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"solo light", Snapshot{Household: HouseholdSolo, Devices: Devices1to5, Usage: []string{UsageBrowsing}}, "starter"},
		{"solo streaming", Snapshot{Household: HouseholdSolo, Devices: Devices1to5, Usage: []string{UsageStreaming}}, "plus"},
		{"duo default", Default(), "plus"},
		{"chaos", Snapshot{Household: HouseholdChaos, Devices: Devices6to10, Usage: []string{UsageBrowsing}}, "premium"},
		{"hotel", Snapshot{Household: HouseholdDuo, Devices: Devices16plus, Usage: []string{UsageBrowsing}}, "premium"},
		{"gamer downloads", Snapshot{Household: HouseholdDuo, Devices: Devices6to10, Usage: []string{UsageGaming, UsageDownloads}}, "premium"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestPlan(tt.snap).ID)
		})
	}
}

func TestDecode(t *testing.T) {
	s, err := Decode([]byte(`{"version":1,"household":"Busy","devices":"11-15","usage":["Gaming","Gaming","Telepathy"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{UsageGaming}, s.Usage)

	s, err = Decode([]byte(`{"household":"Solo","devices":"1-5","usage":[]}`))
	require.NoError(t, err)
	assert.Equal(t, Default().Usage, s.Usage)
	assert.Equal(t, SnapshotVersion, s.Version)

	bad := []string{
		``,
		`not json`,
		`{"household":"Duo","devices":"6-10"}`,
		`{"household":"Duo","devices":"6-10","usage":"Gaming"}`,
		`{"household":"Duo","devices":"6-10","usage":null}`,
		`{"household":"Crowd","devices":"6-10","usage":[]}`,
		`{"household":"Duo","devices":"lots","usage":[]}`,
		`{"household":"Duo","devices":"6-10","usage":[],"extra":1}`,
	}
	for _, in := range bad {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, in)
	}

	_, err = Decode([]byte(`{"version":7,"household":"Duo","devices":"6-10","usage":[]}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestEncodeRoundTrip(t *testing.T) {
	in := FromAnswers(HouseholdChaos, Devices16plus, []string{UsageHomePhone, UsageGaming})
	data, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":1`)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Encode(Snapshot{Household: "?", Devices: Devices1to5})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestCatalogue(t *testing.T) {
	plans := Catalogue()
	require.Len(t, plans, 3)
	assert.Equal(t, []string{"starter", "plus", "premium"}, []string{plans[0].ID, plans[1].ID, plans[2].ID})

	plus, ok := PlanByID("Fibre Plus")
	require.True(t, ok)
	assert.Equal(t, "$74.95", plus.Intro.String())
	assert.Equal(t, "$89.95", plus.Ongoing.String())
	assert.Equal(t, 48, plus.DownloadMbps)
	assert.Equal(t, 17, plus.UploadMbps)
	assert.Equal(t, 6, plus.IntroMonths)
	assert.True(t, plus.Popular)

	_, ok = PlanByID("fibre ultra")
	assert.False(t, ok)
}

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("$109.95")
	require.NoError(t, err)
	assert.Equal(t, Price(10995), p)

	p, err = ParsePrice("139.9")
	require.NoError(t, err)
	assert.Equal(t, "$139.90", p.String())

	p, err = ParsePrice("0")
	require.NoError(t, err)
	assert.Equal(t, "$0.00", p.String())

	for _, in := range []string{"", "abc", "1.234", "-3"} {
		_, err := ParsePrice(in)
		assert.Error(t, err, in)
	}
}

type mapKV map[string][]byte

func (m mapKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (m mapKV) Put(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func TestSaveRestore(t *testing.T) {
	ctx := context.Background()
	kv := mapKV{}

	got, err := Restore(ctx, kv, StorageKey)
	assert.Error(t, err)
	assert.Equal(t, Default(), got)

	snap := FromAnswers(HouseholdBusy, Devices11to15, []string{UsageGaming, UsageVideoCalls})
	require.NoError(t, Save(ctx, kv, StorageKey, snap))
	assert.Contains(t, string(kv[StorageKey]), `"version":1`)

	got, err = Restore(ctx, kv, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	kv[StorageKey] = []byte(`{"household":"Crowd"}`)
	got, err = Restore(ctx, kv, StorageKey)
	assert.Error(t, err)
	assert.Equal(t, Default(), got)
}
