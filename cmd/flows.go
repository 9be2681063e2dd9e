package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zdunecki/skymesh/pkg/dsl"
	"github.com/zdunecki/skymesh/pkg/flows"
)

var flowsCmd = &cobra.Command{
	Use:   "flows [name]",
	Short: "List the wizard flows, or the steps of one flow",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprintln(w, "Available flows:")
			for _, name := range flows.Names() {
				flow, err := flows.Definition(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "  - %s: %s (%d steps)\n", name, flow.Description, len(flow.Steps))
			}
			return nil
		}
		flow, err := flows.Definition(args[0])
		if err != nil {
			return err
		}
		printFlow(w, flow)
		return nil
	},
}

func printFlow(w io.Writer, flow dsl.Flow) {
	fmt.Fprintf(w, "Steps of %s:\n", flow.Flow)
	for i, s := range flow.Steps {
		var flags string
		if s.If != "" {
			flags += " if " + s.If
		}
		if s.AutoAdvance {
			flags += " auto"
		}
		if s.Skippable {
			flags += " skippable"
		}
		fmt.Fprintf(w, "  %2d. %-16s %-7s %s%s\n", i+1, s.ID, s.Kind, s.Title, flags)
	}
}

func init() {
	rootCmd.AddCommand(flowsCmd)
}
