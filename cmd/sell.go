// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/teknel/smart3ctl/internal/ops"
)

var (
	sellPayment string
	sellTUI     bool
)

var sellCmd = &cobra.Command{
	Use:   "sell <id[xqty]>...",
	Short: "Run a sale transaction",
	Long: `Sell articles through keyboard simulation. Each argument is an article
id, optionally suffixed with "x<quantity>" (default 1):

  smart3ctl sell COFFEE BEANSx3 --payment 12.50

With --tui an interactive sale screen is opened instead and the arguments
are used as the initial item list.`,
	RunE: runSell,
}

func init() {
	sellCmd.Flags().StringVar(&sellPayment, "payment", "", "Payment amount, e.g. 12.50")
	sellCmd.Flags().BoolVar(&sellTUI, "tui", false, "Interactive sale screen")
	rootCmd.AddCommand(sellCmd)
}

// parseSaleItems maps "id" or "idxN" arguments to sale items.
func parseSaleItems(args []string) ([]ops.SaleItem, error) {
	items := make([]ops.SaleItem, 0, len(args))
	for _, arg := range args {
		id, qty := arg, 1
		if i := strings.LastIndex(arg, "x"); i > 0 {
			if n, err := strconv.Atoi(arg[i+1:]); err == nil {
				id, qty = arg[:i], n
			}
		}
		if id == "" || qty < 1 {
			return nil, fmt.Errorf("bad sale item %q", arg)
		}
		items = append(items, ops.SaleItem{ID: id, Quantity: qty})
	}
	return items, nil
}

func runSell(cmd *cobra.Command, args []string) error {
	items, err := parseSaleItems(args)
	if err != nil {
		return err
	}
	svc, _, err := newService()
	if err != nil {
		return err
	}

	if sellTUI {
		return runSellTUI(svc, items)
	}

	if len(items) == 0 {
		return fmt.Errorf("no sale items given")
	}
	if sellPayment == "" {
		return fmt.Errorf("--payment is required (or use --tui)")
	}
	payment, err := decimal.NewFromString(sellPayment)
	if err != nil {
		return fmt.Errorf("bad payment %q: %w", sellPayment, err)
	}

	tx, err := svc.NewTransaction(items, progressPrinter)
	if err != nil {
		return err
	}
	ok, err := tx.Begin()
	if err != nil {
		return err
	}
	if !ok {
		for _, missing := range tx.Discontinued() {
			fmt.Printf("unknown article: %s\n", missing.ID)
		}
		return fmt.Errorf("sale rejected: %d unknown articles", len(tx.Discontinued()))
	}

	total := tx.Total()
	fmt.Printf("Total: %s  Payment: %s\n", total.StringFixed(2), payment.StringFixed(2))
	if err := tx.End(payment); err != nil {
		return err
	}
	fmt.Printf("Sale completed, change %s\n", payment.Sub(total).StringFixed(2))
	return nil
}
