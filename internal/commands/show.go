package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <ticker>",
	Short: "Print a ticker's profile and growth panel",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON instead of a table")
}

type showOutput struct {
	Ticker  string         `json:"ticker"`
	Symbol  string         `json:"symbol"`
	Company string         `json:"company,omitempty"`
	Rows    int            `json:"rows"`
	Profile stock.Profile  `json:"profile"`
	Info    map[string]any `json:"info"`
	Growth  map[string]any `json:"growth"`
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	symbol := a.symbol(args[0])
	st, err := a.registry.Get(cmd.Context(), symbol)
	if err != nil {
		return err
	}
	panel := st.GrowthPanel()
	if err := recorder.RecordGrowthPanel(a.recorder, symbol, panel, st.FetchedAt); err != nil {
		a.logger.WithError(err).Warn("record growth panel")
	}

	out := showOutput{
		Ticker:  stock.BareTicker(symbol, a.cfg.Provider.SymbolSuffix),
		Symbol:  symbol,
		Rows:    st.Data().Len(),
		Profile: st.Profile,
		Info:    st.Info.Recognized(),
		Growth:  make(map[string]any, len(panel)),
	}
	out.Company, _ = a.catalog.Name(out.Ticker)
	for _, g := range panel {
		key := fmt.Sprintf("%dm", g.Months)
		if g.Value != nil {
			out.Growth[key] = *g.Value
		} else {
			out.Growth[key] = nil
		}
	}

	w := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printShow(w, out, panel)
}

func printShow(w io.Writer, out showOutput, panel []stock.Growth) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Ticker\t%s (%s)\n", out.Ticker, out.Symbol)
	if out.Company != "" {
		fmt.Fprintf(tw, "Company\t%s\n", out.Company)
	}
	p := out.Profile
	fmt.Fprintf(tw, "Type\t%s\n", p.Type)
	fmt.Fprintf(tw, "Rows\t%d\n", out.Rows)
	fmt.Fprintf(tw, "Previous close\t%s\n", num(p.PreviousClose))
	fmt.Fprintf(tw, "Dividend yield\t%s\n", num(p.DividendYield))
	fmt.Fprintf(tw, "EBITDA margins\t%s\n", num(p.EbitdaMargins))
	fmt.Fprintf(tw, "P/L\t%s\n", num(p.PL))
	fmt.Fprintf(tw, "P/VP\t%s\n", num(p.PriceVP))
	fmt.Fprintf(tw, "EV/EBITDA\t%s\n", num(p.EVEbitda))
	fmt.Fprintf(tw, "Last dividend\t%s on %s\n", num(p.LastDividendValue), str(p.LastDividendDate))
	for _, g := range panel {
		fmt.Fprintf(tw, "Growth %dm\t%s\n", g.Months, num(g.Value))
	}
	return tw.Flush()
}

func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func str(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
