package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/dsl"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/store"
)

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 9000, resolvePort(9000, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

// execute runs the root command with args against a scratch directory.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	prev := zap.L()
	t.Cleanup(func() {
		os.Chdir(origDir) //nolint:errcheck
		zap.ReplaceGlobals(prev)
		recHousehold, recDevices, recUsage, recJSON = "", "", nil, false
		storeFlag, dataDir = "", ""
		recommendCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestRecommendCmd_Flags(t *testing.T) {
	out := execute(t, "recommend", "--store", "memory", "--log-level", "error",
		"--household", recommend.HouseholdChaos, "--usage", recommend.UsageGaming, "--json")

	var got struct {
		Recommendation recommend.Recommendation `json:"recommendation"`
		FromDefault    bool                     `json:"fromDefault"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.False(t, got.FromDefault)
	assert.Equal(t, "premium", got.Recommendation.Plan.ID)
	assert.Equal(t, recommend.Devices6to10, got.Recommendation.Snapshot.Devices)
}

func TestRecommendCmd_DefaultWhenNothingSaved(t *testing.T) {
	out := execute(t, "recommend", "--store", "memory", "--log-level", "error")
	assert.Contains(t, out, "No saved quiz answers")
	assert.Contains(t, out, "Recommended: Fibre Plus")
}

func TestPrintPlans(t *testing.T) {
	var buf bytes.Buffer
	printPlans(&buf, recommend.Catalogue())
	out := buf.String()
	for _, p := range recommend.Catalogue() {
		assert.Contains(t, out, p.Name)
	}
	assert.Contains(t, out, "*popular")
}

func TestPrintFlow(t *testing.T) {
	var buf bytes.Buffer
	printFlow(&buf, dsl.Flow{Flow: "demo", Steps: []dsl.Step{
		{ID: "pick", Kind: "choice", Title: "Pick one", AutoAdvance: true},
		{ID: "extra", Kind: "text", Title: "More", If: "pick == 'b'", Skippable: true},
	}})
	out := buf.String()
	assert.Contains(t, out, "Steps of demo:")
	assert.Contains(t, out, "pick")
	assert.Contains(t, out, " auto")
	assert.Contains(t, out, "if pick == 'b' skippable")
}

func TestPrintOrders(t *testing.T) {
	var buf bytes.Buffer
	printOrders(&buf, nil)
	assert.Equal(t, "No orders yet.\n", buf.String())

	buf.Reset()
	printOrders(&buf, []store.Order{{Number: "SKY-ABC123", Email: "jane@skymesh.com.au", CreatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "SKY-ABC123")
	assert.Contains(t, buf.String(), "jane@skymesh.com.au")
}
