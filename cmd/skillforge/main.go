package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webloom/skillforge/pkg/logger"
	"github.com/webloom/skillforge/pkg/presenter"
)

func init() {
	viper.SetEnvPrefix("SKILLFORGE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillforge")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
}

var rootCmd = &cobra.Command{
	Use:   "skillforge",
	Short: "Induce and validate reusable web automation skills",
	Long: `Skillforge turns recorded web task trajectories into reusable skills:
it prompts a model to generalize recorded actions into functions, replays
model-written tests against the live environment, and commits the functions
that survive into a shared skill library.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			presenter.Warning(err.Error())
		}
		logger.SetLogFormat(viper.GetString("log_format"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "command failed")
		os.Exit(1)
	}
}
