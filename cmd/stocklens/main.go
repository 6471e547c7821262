package main

import (
	"os"
	_ "time/tzdata"

	"StockLens/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
