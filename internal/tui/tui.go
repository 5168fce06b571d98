// Package tui provides a Bubble Tea terminal user interface for dpm-downloader.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/dpm-downloader/internal/config"
	"github.com/handiism/dpm-downloader/internal/download"
	"github.com/handiism/dpm-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#C0392B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D4AC0D"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#D4AC0D")).
			Padding(1, 2)
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  chan download.ProgressEvent

	// Painting counters of the running batch
	done   int32
	failed int32
	total  int32

	// Options
	source     model.Source
	largest    bool
	thumbnails bool
	verbose    bool

	width  int
	height int
}

// NewModel creates a new TUI model starting from settings.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "painting ids, empty for the whole catalog"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0392B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	source, err := settings.SourceKind()
	if err != nil {
		source = model.SourceMinghuaji
	}

	return Model{
		state:      StateInput,
		textInput:  ti,
		spinner:    sp,
		progress:   prog,
		settings:   settings,
		logs:       make([]LogEntry, 0),
		ctx:        ctx,
		cancel:     cancel,
		source:     source,
		largest:    settings.DownloadLargest,
		thumbnails: settings.CreateThumbnail,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every event of the running batch.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when the manager is ready.
	InitDoneMsg struct {
		Manager *download.Manager
		Err     error

		events chan download.ProgressEvent
	}

	// DownloadDoneMsg is sent when the batch completes.
	DownloadDoneMsg struct {
		Done   int32
		Failed int32
		Total  int32
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput {
				m.state = StateInitializing
				m.events = make(chan download.ProgressEvent, 64)
				return m, tea.Batch(m.initializeDownload(), m.waitForEvent(), m.spinner.Tick)
			}

		case "tab":
			if m.state == StateInput {
				if m.source == model.SourceMinghuaji {
					m.source = model.SourceCollection
				} else {
					m.source = model.SourceMinghuaji
				}
				return m, nil
			}

		case "ctrl+l":
			if m.state == StateInput {
				m.largest = !m.largest
				return m, nil
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.thumbnails = !m.thumbnails
				return m, nil
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new batch
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.done, m.failed, m.total = 0, 0, 0
				m.manager = nil
				m.events = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{
				Message: msg.Event.Message,
				Level:   msg.Event.Level,
			})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		cmds = append(cmds, m.waitForEvent())

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.state == StateInitializing {
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(msg.events), m.tickProgress())
		} else if msg.events != nil {
			close(msg.events)
		}

	case DownloadDoneMsg:
		m.done, m.failed, m.total = msg.Done, msg.Failed, msg.Total
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m.done, m.failed, m.total = m.manager.GetProgress()
			progressCmd := m.progress.SetPercent(m.percent())
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent delivers the next progress event of the batch.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return ProgressMsg{Event: event}
	}
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("故宫名画 Palace Museum Paintings"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download zoomable paintings from dpm.org.cn"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Paintings to download:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Source: %s (tab)\n", m.source))
	b.WriteString(fmt.Sprintf("  %s Largest resolution (ctrl+l)\n", check(m.largest)))
	b.WriteString(fmt.Sprintf("  %s Thumbnails (ctrl+t)\n", check(m.thumbnails)))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+o)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Catalog: %s | Images: %s", m.settings.CatalogPath, m.settings.ImageDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Preparing batch..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Paintings: %d/%d | Failed: %d | Source: %s",
		m.done, m.total, m.failed, m.source,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"Download Complete!\n\n"+
			"Paintings: %d\n"+
			"Failed: %d\n"+
			"Images: %s",
		m.done,
		m.failed,
		m.settings.ImageDir,
	))
	b.WriteString(box)
	b.WriteString("\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: source • ctrl+l: largest • ctrl+t: thumbnails • ctrl+o: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// ParseIDs splits the input on commas and whitespace.
func ParseIDs(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '，' || r == ' ' || r == '\t' || r == '\n'
	})
}

// batchSettings applies the options chosen on screen to a copy of the settings.
func (m Model) batchSettings() *config.Settings {
	settings := *m.settings
	settings.Source = m.source.String()
	settings.DownloadLargest = m.largest
	settings.CreateThumbnail = m.thumbnails
	return &settings
}

// initializeDownload creates the manager. The events channel is closed here
// when no batch will run on it.
func (m *Model) initializeDownload() tea.Cmd {
	settings := m.batchSettings()
	events := m.events
	ctx := m.ctx
	return func() tea.Msg {
		manager, err := download.NewManager(settings, func(event download.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
		if err != nil {
			close(events)
			return InitDoneMsg{Err: err}
		}
		return InitDoneMsg{Manager: manager, events: events}
	}
}

// startDownload runs the batch in background and closes events once the
// manager has returned.
func (m *Model) startDownload(events chan download.ProgressEvent) tea.Cmd {
	manager := m.manager
	ids := ParseIDs(m.textInput.Value())
	ctx := m.ctx
	return func() tea.Msg {
		if events != nil {
			defer close(events)
		}
		if manager == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no manager")}
		}

		err := manager.DownloadImages(ctx, ids)
		done, failed, total := manager.GetProgress()

		return DownloadDoneMsg{
			Done:   done,
			Failed: failed,
			Total:  total,
			Err:    err,
		}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
