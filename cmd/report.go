// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teknel/smart3ctl/internal/store"
)

var reportSnapshot bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run a financial report",
	Long: `Put the register in Reading mode and collect the financial report
record series: tickets, items sold and the monetary aggregates.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportSnapshot, "snapshot", false, "Also save the report to the snapshot store")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newService()
	if err != nil {
		return err
	}
	report, err := svc.FinancialReport()
	if err != nil {
		return err
	}

	fmt.Printf("Tickets issued:     %d\n", report.TicketsIssued)
	fmt.Printf("Items sold:         %d\n", report.ItemsSold)
	fmt.Printf("Payments:           %s\n", report.PaymentAmount.StringFixed(2))
	fmt.Printf("Inflow:             %s\n", report.InflowAmount.StringFixed(2))
	fmt.Printf("Outflow:            %s\n", report.OutflowAmount.StringFixed(2))
	fmt.Printf("Drawer:             %s\n", report.DrawerAmount.StringFixed(2))
	fmt.Printf("Payments in period: %s\n", report.PaymentsInPeriod.StringFixed(2))

	if reportSnapshot && cfg.SnapshotDir != "" {
		st, err := store.New(cfg.SnapshotDir)
		if err != nil {
			return err
		}
		if err := st.SaveReport(report); err != nil {
			return err
		}
		logger.Info().Str("dir", cfg.SnapshotDir).Msg("report snapshot saved")
	}
	return nil
}
