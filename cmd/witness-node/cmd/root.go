package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "WITNESSNET"

var (
	flagConfig   string
	flagLogLevel string
)

// rootCmd is the witness-node command.
var rootCmd = &cobra.Command{
	Use:   "witness-node",
	Short: "Run and manage witness nodes",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags not set on the command line fall back to the environment and the config file
		return viper.BindPFlags(cmd.Flags())
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file with flag values")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "loglevel", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(keysCmd)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if flagConfig == "" {
		return
	}
	viper.SetConfigFile(flagConfig)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "could not read config file:", err)
		os.Exit(1)
	}
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(viper.GetString("loglevel")))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level: %w", err)
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
}
