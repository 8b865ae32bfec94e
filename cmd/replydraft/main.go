package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"replydraft/internal/config"
)

var (
	// Global flags
	verbose    bool
	configDir  string
	configFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "replydraft",
	Short: "Draft replies to the email you are answering in webmail",
	Long: `replydraft watches the webmail tab of a Chrome instance, notices when a
reply box is open and writes a draft reply with an OpenAI model.

Run without arguments to attach to the browser and open the interactive view.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configDir == "" {
			if configDir, err = config.Dir(); err != nil {
				return err
			}
		}
		if configFile == "" {
			configFile = filepath.Join(configDir, "config.yaml")
		}
		cfg, err = config.Load(configDir, configFile)
		if err != nil {
			return err
		}

		// The interactive view owns the terminal, so it logs to a file.
		logFile := ""
		if name := cmd.Name(); name == "replydraft" || name == "watch" {
			logFile = cfg.Logging.File
		}
		logger, err = newLogger(cfg.Logging.Level, logFile)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runWatch,
}

func newLogger(level, file string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return nil, err
		}
		zc.OutputPaths = []string{file}
		zc.ErrorOutputPaths = []string{file}
	}
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory (default ~/.config/replydraft)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default <config-dir>/config.yaml)")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(settingsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
