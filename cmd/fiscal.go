// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fiscalCloseCmd = &cobra.Command{
	Use:   "fiscal-close",
	Short: "Run the end-of-day fiscal closing",
	Long: `Put the register in Closing mode and run the end-of-day settlement.
Refused when the register reports a fiscal memory error or a full fiscal
memory.`,
	RunE: runFiscalClose,
}

func init() {
	rootCmd.AddCommand(fiscalCloseCmd)
}

func runFiscalClose(cmd *cobra.Command, args []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	if err := svc.FiscalClosing(); err != nil {
		return err
	}
	fmt.Println("Fiscal closing completed")
	return nil
}
