package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zdunecki/skymesh/pkg/checkout"
	"github.com/zdunecki/skymesh/pkg/store"
)

var ordersLimit int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List confirmed orders, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		orders, err := st.ListOrders(cmd.Context(), ordersLimit)
		if err != nil {
			return err
		}
		printOrders(cmd.OutOrStdout(), orders)
		return nil
	},
}

var orderShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show one confirmed order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		o, err := checkout.Load(cmd.Context(), st, strings.ToUpper(args[0]))
		if err != nil {
			return fmt.Errorf("order %s: %w", args[0], err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	},
}

func printOrders(w io.Writer, orders []store.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders yet.")
		return
	}
	fmt.Fprintf(w, "  %-12s %-30s %s\n", "NUMBER", "EMAIL", "PLACED")
	fmt.Fprintln(w, strings.Repeat("-", 66))
	for _, o := range orders {
		fmt.Fprintf(w, "  %-12s %-30s %s\n", o.Number, o.Email, o.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func init() {
	ordersCmd.Flags().IntVar(&ordersLimit, "limit", 20, "maximum number of orders to list")
	ordersCmd.AddCommand(orderShowCmd)
	rootCmd.AddCommand(ordersCmd)
}
