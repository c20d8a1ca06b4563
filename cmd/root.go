// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/teknel/smart3ctl/internal/config"
	"github.com/teknel/smart3ctl/internal/observability"
	"github.com/teknel/smart3ctl/pkg/register"
)

var (
	configPath string
	portName   string
	baudRate   int
	layerName  string
	unit       int

	wsURL      string
	wsUsername string
	wsNoTLS    bool

	transcriptPath string
	verbose        bool

	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "smart3ctl",
	Short: "Smart3 fiscal cash register driver",
	Long: `Smart3ctl - a host-side driver for Smart3 fiscal cash registers.

Drives point-of-sale registers over RS-232 or RS-485: status queries,
article (PLU) catalogue transfer, financial reports, fiscal closing and
keyboard-simulated sale transactions.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600] [--layer rs485 --unit 1]
  WebSocket: --url ws://gateway/serial [--username user]

For WebSocket authentication, the password is read from the SMART3_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = observability.InitLogger("smart3ctl", verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate: 9600, 19200 or 38400")
	rootCmd.PersistentFlags().StringVar(&layerName, "layer", "", "Physical layer: rs232 or rs485")
	rootCmd.PersistentFlags().IntVar(&unit, "unit", 0, "RS-485 unit number (1-16)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Serial gateway WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoTLS, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&transcriptPath, "transcript", "", "Append a wire transcript to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

// loadConfig merges the configuration file with command line overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if portName != "" {
		cfg.Port = portName
	}
	if baudRate != 0 {
		cfg.Baud = baudRate
	}
	if layerName != "" {
		cfg.PhysicalLayer = layerName
	}
	if unit != 0 {
		cfg.Unit = unit
	}
	if wsURL != "" {
		cfg.WebSocket.URL = wsURL
	}
	if wsUsername != "" {
		cfg.WebSocket.Username = wsUsername
	}
	if wsNoTLS {
		cfg.WebSocket.InsecureSkipTLS = true
	}
	if transcriptPath != "" {
		cfg.TranscriptPath = transcriptPath
	}
	return cfg, config.Validate(cfg)
}

// newService builds the register service from the merged configuration.
func newService() (*register.Service, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	svc, err := register.New(cfg, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	return svc, cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
