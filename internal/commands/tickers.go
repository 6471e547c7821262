package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"StockLens/internal/catalog"
)

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "List the B3 tickers in the built-in catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range cat.Tickers() {
			fmt.Fprintf(tw, "%s\t%s\n", e.Ticker, e.Company)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tickersCmd)
}
