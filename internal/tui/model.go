// Package tui is the terminal front end of docvoice. It renders workflow
// snapshots and turns key presses into controller intents; all workflow
// state lives in the controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alkime/docvoice/internal/controller"
	"github.com/alkime/docvoice/internal/operation"
	"github.com/alkime/docvoice/internal/player"
	"github.com/alkime/docvoice/internal/tui/components/labeledspinner"
	"github.com/alkime/docvoice/internal/tui/style"
	"github.com/alkime/docvoice/pkg/collections"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of the workflow controller the TUI drives.
type Controller interface {
	State() controller.State
	Subscribe() (<-chan controller.State, func())
	Submit(ctx context.Context, doc controller.Document, op operation.Operation) error
	Reset()
	DownloadCurrentResult(dir string) (string, error)
}

// Config holds the TUI settings.
type Config struct {
	// Path pre-fills the document path.
	Path string
	// Operation preselects an operation; the zero value selects the first.
	Operation operation.Operation
	// DownloadDir is where results are saved.
	DownloadDir string
	// Player opens audio results. Nil disables playback.
	Player player.Launcher
	// ReadFile loads the selected document. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
	// Cancel is called when the user quits.
	Cancel context.CancelFunc
}

// screen is what the TUI shows for a controller phase.
type screen int

const (
	screenForm screen = iota
	// screenSubmitting is the form after enter, before the controller
	// reports the request.
	screenSubmitting
	screenBusy
	screenSucceeded
	screenFailed
)

func screenOf(s controller.State) screen {
	switch s.(type) {
	case controller.InFlight:
		return screenBusy
	case controller.Succeeded:
		return screenSucceeded
	case controller.Failed:
		return screenFailed
	default:
		return screenForm
	}
}

type (
	stateMsg              struct{ state controller.State }
	subscriptionClosedMsg struct{}
	submittedMsg          struct{ err error }
	savedMsg              struct {
		path string
		err  error
	}
)

type notice struct {
	text  string
	style lipgloss.Style
}

// Model is the bubbletea model of the TUI.
type Model struct {
	//nolint:containedctx // requests outlive a single Update call
	ctx    context.Context
	ctl    Controller
	config Config
	keys   KeyMap

	updates     <-chan controller.State
	unsubscribe func()

	state controller.State
	// pending is set from the submit key press until the controller
	// leaves Idle or refuses the request.
	pending  bool
	path     textinput.Model
	ops      []operation.Operation
	selected int
	spinner  labeledspinner.Model
	progress progress.Model
	viewport viewport.Model
	summary  string
	notice   notice

	width  int
	height int
}

// New creates the TUI model and subscribes it to ctl. Requests are issued
// with ctx.
func New(ctx context.Context, ctl Controller, cfg Config) *Model {
	if cfg.ReadFile == nil {
		cfg.ReadFile = os.ReadFile
	}

	path := textinput.New()
	path.Prompt = ""
	path.Placeholder = "path/to/document.pdf"
	path.CharLimit = 4096
	path.Width = 60
	path.SetValue(cfg.Path)
	path.Focus()

	ops := operation.All()
	selected := collections.Index(ops, func(op operation.Operation) bool {
		return op == cfg.Operation
	})

	updates, unsubscribe := ctl.Subscribe()

	return &Model{
		ctx:         ctx,
		ctl:         ctl,
		config:      cfg,
		keys:        DefaultKeyMap(),
		updates:     updates,
		unsubscribe: unsubscribe,
		state:       ctl.State(),
		path:        path,
		ops:         ops,
		selected:    max(selected, 0),
		spinner:     labeledspinner.New(spinner.Dot, "", "", ""),
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		width:       80,
		height:      24,
	}
}

// Init starts listening for controller snapshots.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.updates))
}

// Update handles all messages.
func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutSummary()

		return m, nil

	case stateMsg:
		return m, tea.Batch(m.apply(msg.state), waitForState(m.updates))

	case subscriptionClosedMsg:
		return m, nil

	case submittedMsg:
		if msg.err == nil {
			return m, nil
		}

		m.pending = false
		// a request already in flight keeps the controls disabled, which
		// says all there is to say
		if !errors.Is(msg.err, controller.ErrConcurrentSubmission) {
			m.warn(msg.err.Error())
		}

		return m, nil

	case savedMsg:
		switch {
		case msg.err != nil:
			slog.Error("Failed to save result", "error", msg.err)
			m.notice = notice{text: "Download failed: " + msg.err.Error(), style: style.Error}
		case msg.path == "":
			m.warn("Nothing to download")
		default:
			m.notice = notice{text: "Saved to " + msg.path, style: style.Success}
		}

		return m, nil

	case player.DoneMsg:
		if msg.Err != nil {
			slog.Error("Player exited with error", "error", msg.Err, "location", msg.Location)
			m.warn("Playback failed: " + msg.Err.Error())
		}

		return m, nil

	case spinner.TickMsg:
		// let the tick chain lapse outside of requests
		if screenOf(m.state) != screenBusy {
			return m, nil
		}

		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, m.forward(teaMsg)
}

// apply replaces the rendered snapshot.
func (m *Model) apply(next controller.State) tea.Cmd {
	prev := screenOf(m.state)
	m.state = next
	if screenOf(next) != screenForm {
		m.pending = false
	}

	switch s := next.(type) {
	case controller.InFlight:
		m.spinner = m.spinner.WithLabels("Converting "+s.FileName, s.Operation.Label())
		if prev != screenBusy {
			m.notice = notice{}
			m.path.Blur()

			return m.spinner.Init()
		}

	case controller.Succeeded:
		m.summary = ""
		if text, ok := s.Result.(controller.TextResult); ok {
			m.summary = text.Content
		}
		m.layoutSummary()

	case controller.Failed:
		m.path.Blur()

	case controller.Idle:
		if prev != screenForm {
			return m.path.Focus()
		}
	}

	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.activeKeys()

	if key.Matches(msg, keys.ForceQuit) || key.Matches(msg, keys.Quit) {
		return m, m.quit()
	}

	switch m.screen() {
	case screenForm:
		return m, m.handleFormKey(msg, keys)
	case screenSucceeded, screenFailed:
		return m, m.handleResultKey(msg, keys)
	default:
		// controls are disabled while a request is in flight
		return m, nil
	}
}

func (m *Model) handleFormKey(msg tea.KeyMsg, keys KeyMap) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Submit):
		return m.submit()

	case key.Matches(msg, keys.NextOp):
		m.selected = (m.selected + 1) % len(m.ops)
		return nil

	case key.Matches(msg, keys.PrevOp):
		m.selected = (m.selected + len(m.ops) - 1) % len(m.ops)
		return nil

	case key.Matches(msg, keys.PickOp):
		m.selected = int(msg.String()[0] - '1')
		return nil

	case key.Matches(msg, keys.Focus):
		if m.path.Focused() {
			m.path.Blur()
			return nil
		}

		return m.path.Focus()
	}

	if !m.path.Focused() {
		return nil
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)

	return cmd
}

func (m *Model) handleResultKey(msg tea.KeyMsg, keys KeyMap) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Download):
		ctl, dir := m.ctl, m.config.DownloadDir

		return func() tea.Msg {
			path, err := ctl.DownloadCurrentResult(dir)
			return savedMsg{path: path, err: err}
		}

	case key.Matches(msg, keys.Play):
		ref := heldAudio(m.state)
		if m.config.Player == nil {
			m.warn("No audio player configured")
			return nil
		}

		return m.config.Player.Launch(ref.PlayableURL())

	case key.Matches(msg, keys.New):
		m.notice = notice{}
		m.ctl.Reset()

		return nil
	}

	if screenOf(m.state) != screenSucceeded || m.summary == "" {
		return nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return cmd
}

// submit reads the document and hands it to the controller. Submit blocks
// until the request settles, so it runs inside the returned command.
func (m *Model) submit() tea.Cmd {
	path := strings.TrimSpace(m.path.Value())
	if path == "" {
		m.warn("Choose a document first")
		return nil
	}

	if !operation.Accepts(path) {
		m.warn("Unsupported file type, expected one of " + strings.Join(operation.AcceptedExtensions, " "))
		return nil
	}

	ctx, ctl, read := m.ctx, m.ctl, m.config.ReadFile
	op := m.ops[m.selected]
	m.notice = notice{}
	m.pending = true

	return func() tea.Msg {
		data, err := read(path)
		if err != nil {
			return submittedMsg{err: fmt.Errorf("failed to read %s: %w", path, err)}
		}

		doc := controller.Document{Name: filepath.Base(path), Data: data}

		return submittedMsg{err: ctl.Submit(ctx, doc, op)}
	}
}

func (m *Model) quit() tea.Cmd {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.config.Cancel != nil {
		m.config.Cancel()
	}

	return tea.Quit
}

func (m *Model) forward(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	cmds = append(cmds, cmd)

	if m.summary != "" {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return tea.Batch(cmds...)
}

func (m *Model) warn(text string) {
	m.notice = notice{text: text, style: style.Warning}
}

// screen is the phase being shown, counting a submission the controller
// has not reported yet.
func (m *Model) screen() screen {
	s := screenOf(m.state)
	if s == screenForm && m.pending {
		return screenSubmitting
	}

	return s
}

func (m *Model) activeKeys() KeyMap {
	return m.keys.forState(m.screen(), m.path.Focused(), heldAudio(m.state) != nil)
}

// layoutSummary sizes the summary viewport to the window.
func (m *Model) layoutSummary() {
	if m.summary == "" {
		return
	}

	const chrome = 12
	width := max(m.width-4, 10)
	height := max(m.height-chrome, 5)

	m.viewport = viewport.New(width, height)
	m.viewport.SetContent(wrapText(m.summary, width))
}

func waitForState(updates <-chan controller.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return subscriptionClosedMsg{}
		}

		return stateMsg{state: s}
	}
}

func heldAudio(s controller.State) *controller.AudioRef {
	succeeded, ok := s.(controller.Succeeded)
	if !ok {
		return nil
	}

	audio, ok := succeeded.Result.(controller.AudioResult)
	if !ok {
		return nil
	}

	return audio.Ref
}
