package cpu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
)

type model struct {
	cpu    *CPU
	offset uint16

	prevPC uint16
	dump   bool
}

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	styleActive = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
)

func (m model) Init() tea.Cmd {
	m.cpu.PC = m.offset
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "j":
			m.prevPC = m.cpu.PC
			m.cpu.Step()
		case "d":
			m.dump = !m.dump
		}
	}
	return m, nil
}

func (m model) renderPage(start uint16) string {
	s := fmt.Sprintf("%04X | ", start)
	for i := uint16(0); i < 16; i++ {
		b := m.cpu.Bus.Read8(start + i)
		if start+i == m.cpu.PC {
			s += styleActive.Render(fmt.Sprintf("[%02X]", b)) + " "
		} else {
			s += fmt.Sprintf(" %02X  ", b)
		}
	}
	return s
}

func (m model) pageTable() string {
	header := styleHeader.Render("addr | " + strings.Repeat("xx   ", 16))
	lines := []string{header}
	base := m.cpu.PC &^ 0x0F
	for row := -2; row <= 2; row++ {
		lines = append(lines, m.renderPage(base+uint16(row*16)))
	}
	return strings.Join(lines, "\n")
}

func (m model) status() string {
	c := m.cpu
	flagBit := func(set bool, name string) string {
		if set {
			return name
		}
		return "-"
	}
	flags := fmt.Sprintf("%s %s %s %s %s %s %s %s",
		flagBit(c.GetFlag(FlagS), "S"),
		flagBit(c.GetFlag(FlagZ), "Z"),
		flagBit(c.GetFlag(FlagY), "Y"),
		flagBit(c.GetFlag(FlagH), "H"),
		flagBit(c.GetFlag(FlagX), "X"),
		flagBit(c.GetFlag(FlagP), "P"),
		flagBit(c.GetFlag(FlagN), "N"),
		flagBit(c.GetFlag(FlagC), "C"),
	)

	text, _ := c.Disassemble(c.PC)

	return fmt.Sprintf(`
PC: %04X (was %04X)   next: %s
AF: %04X   BC: %04X   DE: %04X   HL: %04X
IX: %04X   IY: %04X   SP: %04X
I: %02X  R: %02X  IM: %d  IFF1: %v  IFF2: %v  halted: %v
cycles: %d
flags: %s
`,
		c.PC, m.prevPC, text,
		c.AF(), c.BC(), c.DE(), c.HL(),
		c.IX, c.IY, c.SP,
		c.I, c.R, c.IM, c.IFF1, c.IFF2, c.Halted,
		c.Cycles,
		flags,
	)
}

func (m model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.pageTable(), m.status())
	if !m.dump {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, "", spew.Sdump(m.cpu.Registers))
}

// Debug starts an interactive TUI over cpu, stepping one instruction per
// space/j keypress, starting execution from offset. "d" toggles a full
// register dump via go-spew; "q" quits.
func (c *CPU) Debug(offset uint16) {
	m := model{cpu: c, offset: offset, prevPC: offset}
	if _, err := tea.NewProgram(m).Run(); err != nil {
		panic(err)
	}
}
