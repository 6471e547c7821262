package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"StockLens/internal/logging"
	"StockLens/internal/notifier"
	"StockLens/internal/scheduler"
)

var digestSend bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute the watchlist growth digest once",
	Args:  cobra.NoArgs,
	RunE:  runDigest,
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().BoolVar(&digestSend, "send", false, "deliver via Telegram when configured")
}

func runDigest(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	var sender scheduler.Sender
	if digestSend && a.cfg.Telegram.BotToken != "" {
		sender = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, logging.WithComponent(a.logger, "telegram"))
	}
	sched := scheduler.NewScheduler(cmd.Context(), a.registry, a.catalog, sender, a.recorder, a.cfg.Location(), logging.WithComponent(a.logger, "scheduler"))
	sched.Watchlist = a.cfg.Watchlist
	sched.Suffix = a.cfg.Provider.SymbolSuffix

	text, err := sched.RunDigest(cmd.Context())
	if text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), text)
	}
	return err
}
