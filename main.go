// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Teknel

// Smart3ctl - host-side driver for Smart3 fiscal cash registers.
//
// A CLI tool for driving point-of-sale fiscal registers over RS-232 and
// RS-485: status, article catalogue transfer, financial reports, fiscal
// closing and keyboard-simulated sales.

package main

import (
	"os"

	"github.com/teknel/smart3ctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
