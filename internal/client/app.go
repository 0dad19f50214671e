package client

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/protocol"
)

// App is the Bubble Tea model for the terminal client. It tracks the
// authenticated identity, the live session, the active room, and the
// rendered views.
type App struct {
	cfg config.ClientConfig

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	helper   help.Model

	showHelp   bool
	helpView   string
	helpHeight int

	commands []commandSpec
	styles   styleSet
	view     primaryView

	session      *Session
	serverURL    string
	statusOnline bool

	token    string
	username string
	userID   int64

	room          int64
	chatHistory   []string
	lastMessageID int64
	typingSent    bool

	pipeHistory []pipeEntry
	logLine     logEntry
}

// primaryView enumerates the main content panels.
type primaryView int

const (
	viewChat primaryView = iota
	viewHelp
	viewPipe
)

func (v primaryView) String() string {
	switch v {
	case viewChat:
		return "chat"
	case viewHelp:
		return "help"
	case viewPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

type logLevel int

const (
	logLevelInfo logLevel = iota
	logLevelError
)

type logEntry struct {
	label string
	body  string
	level logLevel
}

type pipeDirection string

const (
	pipeDirectionIn  pipeDirection = "IN"
	pipeDirectionOut pipeDirection = "OUT"

	pipeHistoryLimit = 64
)

type pipeEntry struct {
	direction pipeDirection
	event     string
	timestamp time.Time
	body      string
}

type commandSpec struct {
	trigger     string
	usage       string
	description string
}

type styleSet struct {
	title         lipgloss.Style
	view          lipgloss.Style
	statusOnline  lipgloss.Style
	statusOffline lipgloss.Style
	label         lipgloss.Style
	value         lipgloss.Style
	logLabel      lipgloss.Style
	logBody       lipgloss.Style
	logLabelError lipgloss.Style
	logBodyError  lipgloss.Style
	help          lipgloss.Style
}

// NewApp builds the initial client model.
func NewApp(cfg config.ClientConfig) tea.Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message or /help"
	input.CharLimit = 0
	input.Focus()

	app := &App{
		cfg:         cfg,
		viewport:    viewport.New(0, 0),
		input:       input,
		helper:      help.New(),
		commands:    defaultCommands(),
		styles:      buildStyles(),
		view:        viewChat,
		serverURL:   cfg.ServerURL,
		chatHistory: make([]string, 0, 128),
	}
	app.logf("Welcome to ChitChat. Use /register or /login to begin.")
	app.updateViewportContent()
	return app
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles terminal events, command results, and server frames.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.updateViewportSize()
		a.updateInputWidth()
		a.updateViewportContent()
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case authResultMsg:
		return a.handleAuthResult(m)
	case connectResultMsg:
		return a.handleConnectResult(m)
	case sessionFrameMsg:
		return a.handleSessionFrame(m)
	case sessionClosedMsg:
		return a.handleSessionClosed(m)
	case sendResultMsg:
		if m.err != nil {
			a.logErrorf("Failed to send %s: %v", m.description, m.err)
		}
		return a, nil
	default:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(m)
		return a, cmd
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, a.shutdown()
	case tea.KeyTab:
		a.handleTabCompletion()
		a.updateHelp()
		return a, nil
	case tea.KeyEnter:
		value := a.input.Value()
		a.input.SetValue("")
		a.updateHelp()
		cmds := []tea.Cmd{a.handleSubmit(value)}
		if a.typingSent {
			a.typingSent = false
			cmds = append(cmds, a.typingCommand(false))
		}
		return a, tea.Batch(cmds...)
	case tea.KeyPgUp:
		a.viewport.LineUp(a.viewport.Height)
		return a, nil
	case tea.KeyPgDown:
		a.viewport.LineDown(a.viewport.Height)
		return a, nil
	case tea.KeyUp:
		a.viewport.LineUp(1)
		return a, nil
	case tea.KeyDown:
		a.viewport.LineDown(1)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.updateHelp()

	cmds := []tea.Cmd{cmd}
	if typingCmd := a.trackTyping(); typingCmd != nil {
		cmds = append(cmds, typingCmd)
	}
	return a, tea.Batch(cmds...)
}

// trackTyping emits a typing indicator on the first keystroke of a draft
// and clears it when the draft empties out.
func (a *App) trackTyping() tea.Cmd {
	drafting := a.input.Value() != "" && !isCommandInput(a.input.Value(), a.cfg.CommandPrefix)
	if drafting == a.typingSent {
		return nil
	}
	if !a.isConnected() || !a.hasActiveRoom() {
		return nil
	}
	a.typingSent = drafting
	return a.typingCommand(drafting)
}

func isCommandInput(value string, prefix rune) bool {
	runes := []rune(value)
	return len(runes) > 0 && runes[0] == prefix
}

func (a *App) isConnected() bool {
	return a.session != nil && a.statusOnline
}

func (a *App) shutdown() tea.Cmd {
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	a.statusOnline = false
	return tea.Quit
}

func (a *App) handleAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logErrorf("%s failed: %v", msg.action, msg.err)
		return a, nil
	}
	a.token = msg.resp.Token
	a.username = msg.resp.User.Username
	a.userID = msg.resp.User.ID
	expires := time.Unix(msg.resp.ExpiresAt, 0).UTC().Format(time.RFC3339)
	a.logf("Authenticated as %s (token expires %s). Use /connect to go online.", a.username, expires)
	return a, nil
}

func (a *App) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logErrorf("Connection failed: %v", msg.err)
		return a, nil
	}
	if a.session != nil {
		a.session.Close()
	}
	a.session = msg.session
	a.serverURL = msg.address
	a.statusOnline = true
	a.logf("Connected to %s. Use /join <room> to start chatting.", msg.address)
	return a, a.listenForSession()
}

func (a *App) handleSessionFrame(msg sessionFrameMsg) (tea.Model, tea.Cmd) {
	if msg.session != a.session || a.session == nil {
		return a, nil
	}
	a.dispatchFrame(msg.frame)
	return a, a.listenForSession()
}

func (a *App) handleSessionClosed(msg sessionClosedMsg) (tea.Model, tea.Cmd) {
	if msg.session != a.session || a.session == nil {
		return a, nil
	}
	a.session = nil
	a.statusOnline = false
	a.typingSent = false
	a.logErrorf("Connection closed. Use /connect to resume.")
	return a, nil
}

// listenForSession waits for the next inbound frame from the live
// session, re-armed after each delivery.
func (a *App) listenForSession() tea.Cmd {
	session := a.session
	if session == nil {
		return nil
	}
	return func() tea.Msg {
		frame, ok := <-session.Messages()
		if !ok {
			return sessionClosedMsg{session: session}
		}
		return sessionFrameMsg{session: session, frame: frame}
	}
}

func (a *App) logf(format string, args ...any) {
	a.logLine = logEntry{label: "INFO", body: fmt.Sprintf(format, args...), level: logLevelInfo}
}

func (a *App) logErrorf(format string, args ...any) {
	a.logLine = logEntry{label: "ERROR", body: fmt.Sprintf(format, args...), level: logLevelError}
}

type authResultMsg struct {
	action string
	resp   protocol.AuthResponse
	err    error
}

type connectResultMsg struct {
	session *Session
	address string
	err     error
}

type sessionFrameMsg struct {
	session *Session
	frame   protocol.Frame
}

type sessionClosedMsg struct {
	session *Session
}

type sendResultMsg struct {
	description string
	err         error
}
