package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luki/incense/internal/config"
	"github.com/luki/incense/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse recorded captures",
	Long:  `Scrubs through recorded motion captures and marks every point where the gesture detector fires.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return inspect.Run(cfg.Capture.Dir, cfg.Gesture)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return config.Write(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(configCmd)
}
