// Package cmd implements the stagehand command tree.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jfelton/stagehand/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "stagehand",
	Short: "Phase-aware task batch scheduler",
	Long: `Stagehand schedules batches of plan tasks for external executors.
It tracks task status, evaluates readiness against dependencies, phases
and sequential groups, and proposes the next batch deterministically.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/stagehand/config.yaml)")
	rootCmd.PersistentFlags().StringP("plan", "p", "", "plan file (default is state.plan_file from config)")
	rootCmd.PersistentFlags().String("state-dir", "", "state directory (default is .stagehand)")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("state.plan_file", rootCmd.PersistentFlags().Lookup("plan"))
	_ = viper.BindPFlag("state.dir", rootCmd.PersistentFlags().Lookup("state-dir"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("STAGEHAND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}
