package cmd

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/borrowd/config"
	"github.com/michaelpento.lv/borrowd/engine"
	"github.com/michaelpento.lv/borrowd/utils"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the borrow position daemon",
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

		ctx := cmd.Context()
		eng, registry, err := buildEngine(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to build borrow engine", zap.Error(err))
		}

		unsubscribe := eng.Subscribe(func(key string, value interface{}) {
			log.Debug("Position changed", zap.String("key", key))
		})
		defer unsubscribe()

		if cfg.PrometheusEnabled {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
			server := &http.Server{Addr: cfg.PrometheusEndpoint, Handler: mux}
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("Metrics server failed", zap.Error(err))
				}
			}()
			defer server.Close()
			log.Info("Metrics server listening", zap.String("endpoint", cfg.PrometheusEndpoint))
		}

		eng.Start()
		defer eng.Stop()

		// Report the position periodically until interrupted.
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info("Shutting down")
				return
			case <-ticker.C:
				logPosition(log, eng)
			}
		}
	},
}

func logPosition(log *zap.Logger, eng *engine.BorrowEngine) {
	if eng.SyncRatio() < 1 {
		log.Info("Position not yet synced")
		return
	}
	fields := []zap.Field{zap.Float64("loan_to_value", eng.LoanToValue())}
	for _, c := range eng.Collaterals() {
		fields = append(fields, zap.String("collateral_"+c.TokenID, c.NativeAmount.String()))
	}
	for _, d := range eng.Debts() {
		fields = append(fields, zap.String("debt_"+d.TokenID, d.NativeAmount.String()))
	}
	log.Info("Position", fields...)
}

func init() {
	rootCmd.AddCommand(startCmd)
}
