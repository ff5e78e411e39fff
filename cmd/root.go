package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/geraldpeng6/crawler-for-attack/internal/config"
	"github.com/geraldpeng6/crawler-for-attack/internal/observability"
)

var cfgFile string

// rootCmd is the base command; every subcommand hangs off it.
var rootCmd = &cobra.Command{
	Use:     "crawler-for-attack",
	Short:   "Finds and exercises like/vote-style interactive elements on web pages.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Runs before any command: resolve config, then bring up logging.
		if err := initializeConfig(); err != nil {
			return err
		}

		var cfg config.Config
		if err := viper.Unmarshal(&cfg); err != nil {
			// Fall back to a sane logger so the error itself gets reported.
			observability.InitializeLogger(config.LoggerConfig{
				Level: "info", Format: "console", ServiceName: "crawler-for-attack",
			})
			return fmt.Errorf("failed to unmarshal config: %w", err)
		}

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting crawler-for-attack",
			zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command under a signal-aware context and maps errors
// to the process exit status. The first interrupt requests a graceful stop at
// the next task boundary; a second one kills the process.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initializeConfig layers defaults, the config file, and environment
// variables into viper. Flags are bound per-command.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SCRAWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env carry the run.
	}
	return nil
}
