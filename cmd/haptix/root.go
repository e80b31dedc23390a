package main

import (
	"fmt"
	"os"

	"github.com/aretw0/haptix/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "haptix",
	Short: "Haptix drives haptic stimuli from live transcripts",
	Long: `Haptix runs user-authored workflow graphs against transcribed speech.
Nodes listen for phrases; when one matches, its stimulus pattern is sent to the
wearable and the nodes it points to start listening.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default: ./haptix.yaml or $HOME/.haptix/haptix.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// loadConfig resolves the configuration for cmd, applying flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.New()
	if err := v.BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flags().Lookup("addr"); f != nil {
		if err := v.BindPFlag("server.addr", f); err != nil {
			return config.Config{}, err
		}
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(v, path)
}
