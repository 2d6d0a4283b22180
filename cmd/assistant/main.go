package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warehouse-assistant/internal/common/config"
	"warehouse-assistant/internal/common/logger"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Warehouse chat assistant",
	Long: `Interprets natural-language warehouse messages: stock checks, low-stock
alerts, reports and stock updates, with follow-up context per session.

Run "assistant serve" for the workflow worker and health endpoints, or
"assistant ask" to interpret a single message.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "activities" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.LoadFromFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		zapLog = logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, logger.FileConfig{
			Path:       cfg.Logging.Output,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		log = logger.NewZapAdapter(zapLog)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zapLog != nil {
			_ = zapLog.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")

	rootCmd.AddCommand(serveCmd, askCmd, activitiesCmd, reindexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
