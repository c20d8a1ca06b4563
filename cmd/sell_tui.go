// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Teknel

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/teknel/smart3ctl/internal/ops"
	"github.com/teknel/smart3ctl/pkg/register"
)

//////////////////////////////////////////////////////////////
// Phases
//////////////////////////////////////////////////////////////

const (
	phaseItems = iota // collecting sale items
	phaseBegin        // resolving articles against the register
	phasePay          // waiting for the payment amount
	phaseEnd          // completing the sale
	phaseDone
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// sellModel is the Bubble Tea model for the interactive sale screen.
type sellModel struct {
	svc *register.Service
	tx  *ops.Transaction

	phase int
	items []ops.SaleItem

	input    textinput.Model
	errText  string
	doneText string

	width  int
	height int
}

type beginResultMsg struct {
	ok  bool
	err error
}

type endResultMsg struct {
	payment decimal.Decimal
	err     error
}

//////////////////////////////////////////////////////////////
// Styles
//////////////////////////////////////////////////////////////

var (
	sellTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sellBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sellErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	sellOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sellDimStyle   = lipgloss.NewStyle().Faint(true)
)

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

func initialSellModel(svc *register.Service, items []ops.SaleItem) sellModel {
	ti := textinput.New()
	ti.Placeholder = "id or id qty"
	ti.CharLimit = 32
	ti.Width = 24
	ti.Focus()

	return sellModel{
		svc:    svc,
		phase:  phaseItems,
		items:  items,
		input:  ti,
		width:  80,
		height: 24,
	}
}

func (m sellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m sellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.tx != nil {
				m.tx.Cancel()
			}
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case beginResultMsg:
		if msg.err != nil {
			m.phase = phaseDone
			m.errText = msg.err.Error()
			return m, nil
		}
		if !msg.ok {
			m.phase = phaseDone
			missing := make([]string, 0, len(m.tx.Discontinued()))
			for _, item := range m.tx.Discontinued() {
				missing = append(missing, item.ID)
			}
			m.errText = "rejected, unknown articles: " + strings.Join(missing, ", ")
			return m, nil
		}
		m.phase = phasePay
		m.input.SetValue("")
		m.input.Placeholder = m.tx.Total().StringFixed(2)
		return m, nil

	case endResultMsg:
		m.phase = phaseDone
		if msg.err != nil {
			m.errText = msg.err.Error()
		} else {
			change := msg.payment.Sub(m.tx.Total())
			m.doneText = fmt.Sprintf("sale completed, change %s", change.StringFixed(2))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles enter per phase: add an item, confirm the item list, or
// confirm the payment.
func (m sellModel) submit() (tea.Model, tea.Cmd) {
	switch m.phase {
	case phaseItems:
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			if len(m.items) == 0 {
				m.errText = "add at least one item"
				return m, nil
			}
			m.phase = phaseBegin
			m.errText = ""
			tx, err := m.svc.NewTransaction(m.items, nil)
			if err != nil {
				m.phase = phaseDone
				m.errText = err.Error()
				return m, nil
			}
			m.tx = tx
			return m, func() tea.Msg {
				ok, err := tx.Begin()
				return beginResultMsg{ok: ok, err: err}
			}
		}
		item, err := parseSellLine(value)
		if err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.items = append(m.items, item)
		m.errText = ""
		m.input.SetValue("")
		return m, nil

	case phasePay:
		payment, err := decimal.NewFromString(strings.TrimSpace(m.input.Value()))
		if err != nil {
			m.errText = "bad amount"
			return m, nil
		}
		m.phase = phaseEnd
		m.errText = ""
		tx := m.tx
		return m, func() tea.Msg {
			return endResultMsg{payment: payment, err: tx.End(payment)}
		}
	}
	return m, nil
}

// parseSellLine accepts "id" or "id qty".
func parseSellLine(line string) (ops.SaleItem, error) {
	fields := strings.Fields(line)
	item := ops.SaleItem{ID: fields[0], Quantity: 1}
	if len(fields) > 1 {
		if _, err := fmt.Sscanf(fields[1], "%d", &item.Quantity); err != nil || item.Quantity < 1 {
			return ops.SaleItem{}, fmt.Errorf("bad quantity %q", fields[1])
		}
	}
	return item, nil
}

func (m sellModel) View() string {
	var b strings.Builder
	b.WriteString(sellTitleStyle.Render("Smart3 Sale"))
	b.WriteString("\n\n")

	var rows []string
	for _, item := range m.items {
		rows = append(rows, fmt.Sprintf("%3d x %s", item.Quantity, item.ID))
	}
	if len(rows) == 0 {
		rows = append(rows, sellDimStyle.Render("(no items)"))
	}
	b.WriteString(sellBoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseItems:
		b.WriteString("Add item (empty line confirms): " + m.input.View())
	case phaseBegin:
		b.WriteString("Resolving articles on the register...")
	case phasePay:
		b.WriteString(fmt.Sprintf("Total %s. Payment: %s",
			sellOKStyle.Render(m.tx.Total().StringFixed(2)), m.input.View()))
	case phaseEnd:
		b.WriteString("Completing the sale...")
	case phaseDone:
		if m.doneText != "" {
			b.WriteString(sellOKStyle.Render(m.doneText))
		}
		b.WriteString("\npress esc to quit")
	}

	if m.errText != "" {
		b.WriteString("\n" + sellErrStyle.Render(m.errText))
	}
	b.WriteString("\n\n" + sellDimStyle.Render("enter: confirm • esc: cancel"))
	return b.String()
}

// runSellTUI opens the interactive sale screen.
func runSellTUI(svc *register.Service, items []ops.SaleItem) error {
	p := tea.NewProgram(initialSellModel(svc, items))
	_, err := p.Run()
	return err
}
