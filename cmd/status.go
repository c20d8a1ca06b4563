// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the register status block",
	Long: `Open a session, request a hello and print the parsed status block:
operating mode, flags, register clock and identity.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	status, err := svc.Status()
	if err != nil {
		return err
	}

	fmt.Printf("Device:   %s\n", status.DeviceName)
	fmt.Printf("Serial:   %s\n", status.SerialNumber)
	fmt.Printf("Mode:     %s\n", status.Mode)
	fmt.Printf("Clock:    %s\n", status.Timestamp.Format("02/01/06 15:04"))
	fmt.Printf("Extended: %v\n", status.Extended)
	fmt.Printf("Flags:    0x%06X\n", uint32(status.Flags))
	return nil
}
