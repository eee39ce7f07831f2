package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/config"
	"github.com/michaelpento.lv/borrowd/utils"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <token-id>",
	Short: "Print the current variable borrow APR for a token",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		if err := config.LoadEnv(); err != nil {
			log.Fatal("Failed to load environment", zap.Error(err))
		}
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}
		config.ApplyEnv(cfg)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		eng, _, err := buildEngine(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to build borrow engine", zap.Error(err))
		}

		apr, err := eng.GetAprQuote(ctx, args[0])
		if err != nil {
			log.Fatal("Failed to fetch APR quote", zap.Error(err))
		}
		fmt.Printf("%s variable borrow APR: %.4f%%\n", args[0], apr*100)
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}
