package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/recommend"
)

var (
	recHousehold string
	recDevices   string
	recUsage     []string
	recJSON      bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show the plan recommendation for quiz answers",
	Long: `Without flags the answers saved by the last completed quiz are used.
Passing any of --household, --devices or --usage builds the answers from
flags instead; missing ones take the default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, fromDefault, err := recommendSnapshot(cmd)
		if err != nil {
			return err
		}
		rec := recommend.Derive(snap)
		if recJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"recommendation": rec, "fromDefault": fromDefault})
		}
		printRecommendation(cmd.OutOrStdout(), rec, fromDefault)
		return nil
	},
}

// recommendSnapshot builds the snapshot from flags, or restores the saved one.
func recommendSnapshot(cmd *cobra.Command) (recommend.Snapshot, bool, error) {
	flags := cmd.Flags()
	if flags.Changed("household") || flags.Changed("devices") || flags.Changed("usage") {
		def := recommend.Default()
		household, devices, usage := recHousehold, recDevices, recUsage
		if household == "" {
			household = def.Household
		}
		if devices == "" {
			devices = def.Devices
		}
		snap := recommend.FromAnswers(household, devices, usage)
		if err := snap.Validate(); err != nil {
			return recommend.Snapshot{}, false, err
		}
		return snap, false, nil
	}

	st, err := openStore(cmd.Context())
	if err != nil {
		return recommend.Snapshot{}, false, err
	}
	defer st.Close()

	snap, err := recommend.Restore(cmd.Context(), st, recommend.StorageKey)
	if err != nil {
		zap.L().Debug("using default snapshot", zap.Error(err))
	}
	return snap, err != nil, nil
}

func printRecommendation(w io.Writer, rec recommend.Recommendation, fromDefault bool) {
	if fromDefault {
		fmt.Fprintln(w, "No saved quiz answers, showing the default household.")
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Recommended: %s\n", rec.Plan.Name)
	fmt.Fprintf(w, "   %s, %s\n", rec.PeopleLabel, rec.DevicesLabel)
	fmt.Fprintf(w, "   Usage: %s\n", strings.Join(rec.Tags, ", "))
	fmt.Fprintf(w, "   %s/mo for %d months, then %s/mo\n", rec.Plan.Intro, rec.Plan.IntroMonths, rec.Plan.Ongoing)
	fmt.Fprintln(w)
	fmt.Fprintln(w, rec.Sentence)
}

func init() {
	recommendCmd.Flags().StringVar(&recHousehold, "household", "", fmt.Sprintf("household (%s)", strings.Join(recommend.Households(), ", ")))
	recommendCmd.Flags().StringVar(&recDevices, "devices", "", fmt.Sprintf("device count (%s)", strings.Join(recommend.DeviceBuckets(), ", ")))
	recommendCmd.Flags().StringSliceVar(&recUsage, "usage", nil, "usage labels, comma separated")
	recommendCmd.Flags().BoolVar(&recJSON, "json", false, "print JSON")
	rootCmd.AddCommand(recommendCmd)
}
