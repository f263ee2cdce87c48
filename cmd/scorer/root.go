package main

import (
	"github.com/spf13/cobra"

	"github.com/rawblock/splitscore/internal/config"
	"github.com/rawblock/splitscore/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Split scoring and categorical prediction service",
	Long: `scorer rates candidate decision-tree splits with information-theoretic
criteria and turns category counts into corrected probability estimates.
Run "scorer serve" for the HTTP API or use the one-shot commands on input files.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var (
	configPath string
	logLevel   string
	logType    string

	cfg config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level [debug,info,warn,error]")
	rootCmd.PersistentFlags().StringVar(&logType, "log-type", "", "Logging style [dev|prod]")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the config file, env overrides and flags, then sets up
// logging. Flags win over both.
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logType != "" {
		cfg.Log.Type = logType
	}
	_, err = logging.Setup(cfg.Log.Level, cfg.Log.Type)
	return err
}
