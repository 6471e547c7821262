package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mockConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
provider:
  name: mock
logging:
  level: error
  output: stderr
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestTickersCommand(t *testing.T) {
	out := run(t, "tickers")
	if !strings.Contains(out, "PETR4") || !strings.Contains(out, "Petrobras") {
		t.Errorf("catalogue listing missing PETR4:\n%s", out)
	}
}

func TestShowCommand_JSON(t *testing.T) {
	out := run(t, "show", "petr4", "--json", "--config", mockConfig(t))
	showJSON = false

	var got showOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if got.Symbol != "PETR4.SA" || got.Ticker != "PETR4" {
		t.Errorf("unexpected symbol %s / %s", got.Symbol, got.Ticker)
	}
	if got.Rows == 0 {
		t.Error("expected price rows")
	}
	if got.Company == "" {
		t.Error("expected catalogue company name")
	}
	if _, ok := got.Growth["1m"]; !ok {
		t.Errorf("growth panel missing 1m: %v", got.Growth)
	}
}

func TestExportCommand(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "vale.csv")
	run(t, "export", "VALE3", "--columns", "Date,Close", "--start", "2000-01-01", "--out", outPath, "--config", mockConfig(t))
	exportColumns, exportStart, exportOut = "", "", ""

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "Date,Close" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if len(lines) < 2 {
		t.Error("expected data rows")
	}
}

func TestExportCommand_DefaultStartDoesNotStick(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "itub.csv")
	run(t, "export", "ITUB4", "--out", outPath, "--config", mockConfig(t))
	exportOut = ""

	if exportStart != "" {
		t.Errorf("config default leaked into the --start flag: %q", exportStart)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Date,Open,High,Low,Close,Adj Close,Volume,StockCode\n") {
		t.Errorf("expected every column, got %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}
