package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"StockLens/internal/export"
	"StockLens/internal/model"
	"StockLens/internal/stock"
)

var (
	exportStart   string
	exportEnd     string
	exportColumns string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export <ticker>",
	Short: "Write a ticker's price table as CSV",
	Long: `Write the price table for a date range as CSV. Without --out the file is
named {ticker}_stock_prices.csv; use --out - for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportStart, "start", "", "first date, YYYY-MM-DD (default dashboard.default_start)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last date, YYYY-MM-DD (default today)")
	exportCmd.Flags().StringVar(&exportColumns, "columns", "", "comma separated columns (default all)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output path")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	columns, err := export.ParseColumns(exportColumns)
	if err != nil {
		return err
	}
	startArg := exportStart
	if startArg == "" {
		startArg = a.cfg.Dashboard.DefaultStart
	}
	start, err := time.Parse(model.DateLayout, startArg)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end := time.Now().In(a.cfg.Location())
	if exportEnd != "" {
		if end, err = time.Parse(model.DateLayout, exportEnd); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
	}
	if start.After(end) {
		a.logger.Warn("A data fim deve ser maior que a data início")
	}

	symbol := a.symbol(args[0])
	st, err := a.registry.Get(cmd.Context(), symbol)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		path := exportOut
		if path == "" {
			path = export.Filename(stock.BareTicker(symbol, a.cfg.Provider.SymbolSuffix))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
		a.logger.WithField("path", path).Info("writing csv")
	}
	return export.WriteCSV(w, st.Range(start, end), columns)
}
