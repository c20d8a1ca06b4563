// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teknel/smart3ctl/internal/config"
	"github.com/teknel/smart3ctl/internal/conn"
	"github.com/teknel/smart3ctl/pkg/smart3"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display the register's frames in human-readable form",
	Long: `Continuously decode and display Smart3 frames as they arrive on the
line, without driving a session. Useful for diagnosing communication
problems between another host and a register.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layer, err := config.ParseLayer(cfg.PhysicalLayer)
	if err != nil {
		return err
	}

	var c conn.Connection
	if cfg.WebSocket.URL != "" {
		password := ""
		if cfg.WebSocket.Username != "" {
			if password, err = conn.GetPassword(); err != nil {
				return err
			}
		}
		c, err = conn.OpenWebSocket(cfg.WebSocket.URL, cfg.WebSocket.Username, password, cfg.WebSocket.InsecureSkipTLS)
	} else {
		c, err = conn.OpenSerial(cfg.Port, cfg.Baud)
	}
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Smart3 monitor - %s @ %d baud (%s)\n", cfg.Port, cfg.Baud, layer)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	framer := smart3.NewFramer(layer)
	if err := c.SetReadTimeout(time.Second); err != nil {
		return err
	}
	buf := make([]byte, 128)
	for {
		n, err := c.Read(buf)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			packet, err := framer.FeedByte(buf[i])
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				framer.Reset()
				continue
			}
			if packet != nil {
				printPacket(packet)
				framer.Reset()
			}
		}
	}
}

func printPacket(p smart3.Packet) {
	now := time.Now().Format("15:04:05.000")
	switch packet := p.(type) {
	case *smart3.IndicatorPacket:
		fmt.Printf("[%s] indicator 0x%02X\n", now, packet.Control())
	case *smart3.MessagePacket:
		fmt.Printf("[%s] seq=%02d crn=%02d %s\n", now, packet.Sequence(), packet.CRNumber(), packet.Message())
	}
}
