package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "twscan - 台股紅綠燈每日掃描",
	Long: `twscan Unified CLI

Daily traffic-light scanner for Taiwan equities.
Bars → MA/MACD/RSI/KD → GREEN / RED / YELLOW → report sinks → LINE/Telegram.

Usage:
  go run ./cmd/scanner [command]

Examples:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --codes 2330,2317 --dry-run
  go run ./cmd/scanner indicators 2330
  go run ./cmd/scanner api
  go run ./cmd/scanner scheduler start
  go run ./cmd/scanner seed --0050
  go run ./cmd/scanner test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
