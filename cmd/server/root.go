package main

import (
	"fmt"

	"go-gin-event-scheduler/config"
	"go-gin-event-scheduler/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Event scheduling service",
	Long:          `HTTP API for managing events, with write-through persistence and due-soon alerts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}
		if err := logger.Configure(loaded.Log.Level); err != nil {
			return fmt.Errorf("configure logger: %w", err)
		}
		cfg = loaded
		return nil
	},
	// serve is the default
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, checkCmd)
}
