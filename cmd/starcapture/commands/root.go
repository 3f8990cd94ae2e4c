package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "starcapture",
		Short: "StarCapture - asynchronous astro-camera frame recorder",
		Long: `StarCapture records live camera frame streams to disk without ever
blocking the capture path: frames flow through a bounded in-memory queue
into a dedicated writer, dropping (and reporting) frames under
backpressure instead of growing memory.

Features:
  • SER container and TIFF sequence output
  • Bounded memory use with an explicit drop policy
  • Per-session metadata sidecar (camera, controls, statistics)
  • Live save/mean FPS reporting
  • REST API and websocket event stream for observers`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/starcapture/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "API server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}
