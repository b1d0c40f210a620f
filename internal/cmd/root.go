package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hookflow/hookflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "hookflow",
	Short: "Hook-driven coordination kernel",
	Long: `Hookflow accepts lifecycle events, resolves which registered hooks
apply, protects downstream agents from cascading failure via circuit
breaking, and dispatches work through pluggable coordination strategies
(parallel fan-out, sequential chaining, threshold consensus, round-robin).`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/hookflow/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/hookflow")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("HOOKFLOW")
	// Replace dots with underscores for nested keys in env vars
	// e.g., HOOKFLOW_BUS_QUEUE_SIZE for bus.queue_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
