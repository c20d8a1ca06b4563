// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teknel/smart3ctl/internal/ops"
	"github.com/teknel/smart3ctl/internal/store"
	"github.com/teknel/smart3ctl/pkg/plu"
	"github.com/teknel/smart3ctl/pkg/plufile"
)

var (
	pluOutPath   string
	pluDelimiter string
	pluSnapshot  bool
)

var pluCmd = &cobra.Command{
	Use:   "plu",
	Short: "Transfer the article catalogue",
}

var pluReadCmd = &cobra.Command{
	Use:   "read <from-id> <to-id>",
	Short: "Read articles in an id range",
	Args:  cobra.ExactArgs(2),
	RunE:  runPLURead,
}

var pluWriteCmd = &cobra.Command{
	Use:   "write <file>",
	Short: "Program articles one at a time from a delimited file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPLUWrite,
}

var pluBroadcastCmd = &cobra.Command{
	Use:   "broadcast <file>",
	Short: "Bulk-load articles from a delimited file over the broadcast channel",
	Args:  cobra.ExactArgs(1),
	RunE:  runPLUBroadcast,
}

func init() {
	pluReadCmd.Flags().StringVarP(&pluOutPath, "out", "o", "", "Write the result to this file instead of stdout")
	pluReadCmd.Flags().StringVar(&pluDelimiter, "delimiter", ";", "Export field delimiter")
	pluReadCmd.Flags().BoolVar(&pluSnapshot, "snapshot", false, "Also save the catalogue to the snapshot store")
	pluCmd.AddCommand(pluReadCmd, pluWriteCmd, pluBroadcastCmd)
	rootCmd.AddCommand(pluCmd)
}

// progressPrinter reports progress on stderr.
func progressPrinter(p ops.Progress) {
	if p.Total > 0 {
		fmt.Fprintf(os.Stderr, "\r%s %s (%d/%d)   ", p.Kind, p.Item, p.Current, p.Total)
		return
	}
	fmt.Fprintf(os.Stderr, "\r%s %s (%d)   ", p.Kind, p.Item, p.Current)
}

func runPLURead(cmd *cobra.Command, args []string) error {
	svc, cfg, err := newService()
	if err != nil {
		return err
	}
	plus, err := svc.ReadPLU(args[0], args[1], progressPrinter)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	logger.Info().Int("count", len(plus)).Msg("articles read")

	out := os.Stdout
	if pluOutPath != "" {
		f, err := os.Create(pluOutPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := plufile.Export(out, plus, rune(pluDelimiter[0])); err != nil {
		return err
	}

	if pluSnapshot && cfg.SnapshotDir != "" {
		st, err := store.New(cfg.SnapshotDir)
		if err != nil {
			return err
		}
		if err := st.SaveCatalog(plus); err != nil {
			return err
		}
		logger.Info().Str("dir", cfg.SnapshotDir).Msg("catalogue snapshot saved")
	}
	return nil
}

func importFile(path string) ([]*plu.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return plufile.Import(f)
}

func runPLUWrite(cmd *cobra.Command, args []string) error {
	plus, err := importFile(args[0])
	if err != nil {
		return err
	}
	svc, _, err := newService()
	if err != nil {
		return err
	}
	err = svc.WritePLU(plus, progressPrinter)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("%d articles written\n", len(plus))
	return nil
}

func runPLUBroadcast(cmd *cobra.Command, args []string) error {
	plus, err := importFile(args[0])
	if err != nil {
		return err
	}
	svc, _, err := newService()
	if err != nil {
		return err
	}
	err = svc.BroadcastPLU(plus, progressPrinter)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	fmt.Printf("%d articles loaded\n", len(plus))
	return nil
}
