package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zdunecki/skymesh/pkg/recommend"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List the fibre plan catalogue",
	Run: func(cmd *cobra.Command, args []string) {
		printPlans(cmd.OutOrStdout(), recommend.Catalogue())
	},
}

func printPlans(w io.Writer, plans []recommend.Plan) {
	fmt.Fprintln(w, "Available plans:")
	fmt.Fprintf(w, "  %-10s %-14s %10s %10s %12s\n", "ID", "NAME", "INTRO/MO", "THEN/MO", "SPEED")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, p := range plans {
		popular := ""
		if p.Popular {
			popular = "  *popular"
		}
		fmt.Fprintf(w, "  %-10s %-14s %10s %10s %12s%s\n",
			p.ID, p.Name, p.Intro, p.Ongoing, fmt.Sprintf("%d/%d", p.DownloadMbps, p.UploadMbps), popular)
	}
}

func init() {
	rootCmd.AddCommand(plansCmd)
}
