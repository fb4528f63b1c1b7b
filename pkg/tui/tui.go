// Package tui provides a terminal user interface for midiroll
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/midiroll/pkg/pianoroll"
)

// Ivory and ebony color scheme
var (
	ivory      = lipgloss.Color("#FFFFF0")
	keyAmber   = lipgloss.Color("#FFB000")
	silverGray = lipgloss.Color("#C0C0C0")
	ebony      = lipgloss.Color("#1B1B1B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ivory).
			Background(ebony).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(ivory).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(keyAmber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(ivory).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(keyAmber).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// MenuItem represents a menu option
type MenuItem struct {
	Title       string
	Description string
	From        pianoroll.Format
	To          pianoroll.Format
}

var menuItems = []MenuItem{
	{Title: "MIDI → ROLL", Description: "Quantize a MIDI file into a piano-roll record", From: pianoroll.FormatMIDI, To: pianoroll.FormatRoll},
	{Title: "ROLL → MIDI", Description: "Render a piano-roll record as a MIDI file", From: pianoroll.FormatRoll, To: pianoroll.FormatMIDI},
	{Title: "MIDI → TOKENS", Description: "Flatten a MIDI file into a token sequence", From: pianoroll.FormatMIDI, To: pianoroll.FormatTokens},
	{Title: "TOKENS → MIDI", Description: "Render a token sequence as a MIDI file", From: pianoroll.FormatTokens, To: pianoroll.FormatMIDI},
	{Title: "Exit", Description: "Exit the application"},
}

var allowedTypes = map[pianoroll.Format][]string{
	pianoroll.FormatMIDI:   {".mid", ".midi"},
	pianoroll.FormatRoll:   {".json"},
	pianoroll.FormatTokens: {".txt", ".tok"},
}

// Model represents the TUI model
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	opts         pianoroll.Options
	selectedFile string
	outputFile   string
	steps        int
	conversion   MenuItem
	err          error
	width        int
	height       int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	steps      int
	err        error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model quantizing MIDI input with opts
func New(opts pianoroll.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi", ".json", ".txt", ".tok"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(keyAmber)

	return Model{
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
		opts:       opts,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs to receive all messages while open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.steps = msg.steps
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(menuItems)-1 {
			return m, tea.Quit
		}
		m.conversion = menuItems[m.menuIndex]
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = allowedTypes[m.conversion.From]
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		m.steps = 0
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	input, conv, opts := m.selectedFile, m.conversion, m.opts
	return func() tea.Msg {
		return convert(input, conv, opts)
	}
}

func convert(input string, conv MenuItem, opts pianoroll.Options) conversionDoneMsg {
	data, err := os.ReadFile(input)
	if err != nil {
		return conversionDoneMsg{err: err}
	}

	roll, err := pianoroll.Read(data, conv.From, opts)
	if err != nil {
		return conversionDoneMsg{err: err}
	}

	result, err := roll.Encode(conv.To)
	if err != nil {
		return conversionDoneMsg{err: err}
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	outputFile := base + conv.To.Extension()
	if outputFile == input {
		outputFile = base + ".out" + conv.To.Extension()
	}

	if err := os.WriteFile(outputFile, result, 0644); err != nil {
		return conversionDoneMsg{err: err}
	}

	return conversionDoneMsg{outputFile: outputFile, steps: roll.Len()}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT CONVERSION "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(keyAmber).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(fmt.Sprintf("div %d • pedal %v", m.opts.Div, m.opts.Pedal)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.ToUpper(string(m.conversion.From)))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" CONVERTING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Converting %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", m.conversion.From, m.conversion.To)))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s\n", filepath.Base(m.outputFile)))
		s.WriteString(fmt.Sprintf("Steps:  %d", m.steps))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   __  __ ___ ___ ___ ___  ___  _    _
  |  \/  |_ _|   \_ _| _ \/ _ \| |  | |
  | |\/| || || |) | ||   / (_) | |__| |__
  |_|  |_|___|___/___|_|_\\___/|____|____|
`
	return lipgloss.NewStyle().Foreground(ivory).Render(logo)
}

// Run starts the TUI application
func Run(opts pianoroll.Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
