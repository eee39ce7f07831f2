package cmd

import (
	"context"

	"github.com/michaelpento.lv/borrowd/utils"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "borrowd",
	Short: "A collateralized borrow engine for Aave-style lending markets",
	Long: `A daemon that tracks one wallet's collateral and debt position against
an Aave-style lending market, keeps it synced in the background, and
composes deposit, withdraw, borrow and repay transactions.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.borrowd.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	utils.InitLogger(debug)
}
