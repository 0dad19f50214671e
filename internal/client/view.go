package client

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"
)

// chromeRows counts the rows below the viewport that never scroll: the
// input line, the log line, and the status bar.
const chromeRows = 3

const (
	emptyChatNotice = "No messages in this room yet. Type a line and press Enter to send."
	emptyPipeNotice = "No transport frames captured yet. Run a command to see traffic, or /pipe clear to reset."
)

var homeScreen = buildHomeScreen()

func (a *App) View() string {
	rows := make([]string, 0, 5)
	rows = append(rows, a.viewport.View())
	if a.showHelp && a.helpView != "" {
		rows = append(rows, a.styles.help.Render(a.helpView))
	}
	rows = append(rows, a.input.View(), a.logLineView(), a.statusLine())
	return strings.Join(rows, "\n")
}

func (a *App) updateViewportContent() {
	content, follow := a.viewportContent()
	a.viewport.SetContent(content)
	if follow {
		a.viewport.GotoBottom()
	}
}

// viewportContent renders the active panel and reports whether the
// viewport should stick to the newest line.
func (a *App) viewportContent() (string, bool) {
	switch a.view {
	case viewPipe:
		if len(a.pipeHistory) == 0 {
			return emptyPipeNotice, true
		}
		return a.renderPipeView(), true
	case viewHelp:
		return a.renderHelpView(), false
	}
	if !a.hasActiveRoom() {
		return homeScreen, false
	}
	if len(a.chatHistory) == 0 {
		return emptyChatNotice, true
	}
	width := a.viewport.Width
	if width <= 0 {
		width = a.width
	}
	return strings.Join(wrapLines(a.chatHistory, width), "\n"), true
}

func (a *App) hasActiveRoom() bool {
	return a.room != 0
}

func (a *App) updateViewportSize() {
	if a.height == 0 {
		return
	}
	rows := a.height - chromeRows - a.helpHeight
	if rows < 3 {
		rows = 3
	}
	a.viewport.Width = a.width
	a.viewport.Height = rows
}

func (a *App) updateInputWidth() {
	total := a.width
	if total <= 0 {
		total = 60
	}
	usable := total - lipgloss.Width(a.input.Prompt) - 1
	if usable < 10 {
		usable = 10
	}
	a.input.Width = usable
}

func (a *App) updateHelp() {
	token := commandToken(a.input.Value(), a.cfg.CommandPrefix)
	if token == "" {
		a.hideHelp()
		return
	}
	bindings := a.matchingBindings(token)
	if len(bindings) == 0 {
		a.hideHelp()
		return
	}
	a.showHelp = true
	a.helper.Width = a.width
	a.helpView = strings.TrimRight(a.helper.View(commandHelpMap{bindings: bindings}), "\n")
	a.resizeForHelp(lineCount(a.helpView))
}

func (a *App) hideHelp() {
	a.showHelp = false
	a.helpView = ""
	a.resizeForHelp(0)
}

// resizeForHelp reclaims or cedes viewport rows when the help overlay
// grows or shrinks.
func (a *App) resizeForHelp(height int) {
	if height == a.helpHeight {
		return
	}
	a.helpHeight = height
	a.updateViewportSize()
}

// commandToken extracts the leading command word of the draft, or ""
// when the draft is not command input.
func commandToken(value string, prefix rune) string {
	if value == "" || !isCommandInput(value, prefix) {
		return ""
	}
	if idx := strings.IndexFunc(value, unicode.IsSpace); idx >= 0 {
		return value[:idx]
	}
	return value
}

func (a *App) matchingBindings(token string) []key.Binding {
	token = strings.ToLower(token)
	var matched []key.Binding
	for _, c := range a.commands {
		if !strings.HasPrefix(strings.ToLower(c.trigger), token) {
			continue
		}
		matched = append(matched, key.NewBinding(
			key.WithKeys(c.usage),
			key.WithHelp(c.usage, c.description),
		))
	}
	return matched
}

func (a *App) statusLine() string {
	conn, connStyle := "OFFLINE", a.styles.statusOffline
	if a.statusOnline {
		conn, connStyle = "ONLINE", a.styles.statusOnline
	}
	room := "-"
	if a.hasActiveRoom() {
		room = strconv.FormatInt(a.room, 10)
	}
	segments := []string{
		a.styles.title.Render("ChitChat"),
		a.styles.view.Render(strings.ToUpper(a.view.String())),
		connStyle.Render(conn),
		a.statusField("Server", a.serverURL),
		a.statusField("User", orDash(a.username)),
		a.statusField("Room", room),
	}
	return strings.Join(segments, " | ")
}

func (a *App) statusField(label, value string) string {
	return a.styles.label.Render(label) + ": " + a.styles.value.Render(value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *App) logLineView() string {
	if a.logLine.level == logLevelError {
		return a.styles.logLabelError.Render(a.logLine.label) + " " + a.styles.logBodyError.Render(a.logLine.body)
	}
	return a.styles.logLabel.Render(a.logLine.label) + " " + a.styles.logBody.Render(a.logLine.body)
}

func buildStyles() styleSet {
	bold := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
	}
	plain := func(color string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}
	return styleSet{
		title:         bold("10"),
		view:          bold("12"),
		statusOnline:  bold("10"),
		statusOffline: bold("9"),
		label:         plain("8"),
		value:         plain("15"),
		logLabel:      bold("11"),
		logBody:       plain("7"),
		logLabelError: bold("9"),
		logBodyError:  plain("9"),
		help:          plain("14"),
	}
}

func (a *App) renderHelpView() string {
	widest := 0
	for _, c := range a.commands {
		if n := len(c.usage); n > widest {
			widest = n
		}
	}
	var b strings.Builder
	b.WriteString("ChitChat Commands\n\n")
	for _, c := range a.commands {
		fmt.Fprintf(&b, "%-*s  %s\n", widest, c.usage, c.description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderPipeView() string {
	blocks := make([]string, 0, len(a.pipeHistory))
	for _, entry := range a.pipeHistory {
		event := entry.event
		if event == "" {
			event = "unknown"
		}
		header := fmt.Sprintf("[%s %s %s]", entry.timestamp.Format("15:04:05.000"), entry.direction, event)
		blocks = append(blocks, a.styles.label.Render(header)+"\n"+entry.body)
	}
	return strings.Join(blocks, "\n\n")
}

func buildHomeScreen() string {
	banner := figure.NewColorFigure("CHITCHAT", "3-d", "green", true)
	lines := []string{
		strings.TrimRight(banner.String(), "\n"),
		"",
		"Use /register or /login to authenticate.",
		"Use /connect to open the live connection.",
		"Use /join <room-id> to enter a room and load its history.",
		"Use /reply <message-id> <text> to answer a message.",
		"Use /read <message-id> to send read receipts.",
		"Use /pipe to inspect raw transport frames.",
		"Use /help to browse all commands.",
	}
	return strings.Join(lines, "\n")
}

// wrapLines reflows lines to at most width display cells each, breaking
// at space boundaries when one fits inside the row. Empty lines pass
// through so paragraph gaps survive the reflow.
func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	if width < 10 {
		width = 10
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			out = append(out, "")
			continue
		}
		rest := line
		for rest != "" && runewidth.StringWidth(rest) > width {
			var row string
			row, rest = splitRow(rest, width)
			out = append(out, row)
		}
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

// splitRow cuts one row of at most limit cells off the front of s. The
// row loses its trailing spaces and the remainder its leading ones.
func splitRow(s string, limit int) (string, string) {
	cut := rowCut(s, limit)
	row := strings.TrimRight(s[:cut], " ")
	if row == "" {
		row = s[:cut]
	}
	return row, strings.TrimLeft(s[cut:], " ")
}

// rowCut returns the byte offset ending a row of at most limit cells,
// preferring the last space boundary. A rune wider than the whole limit
// still occupies a row on its own.
func rowCut(s string, limit int) int {
	cells := 0
	breakAt := -1
	for i, r := range s {
		w := runewidth.RuneWidth(r)
		if cells+w > limit {
			switch {
			case unicode.IsSpace(r):
				return i
			case breakAt >= 0:
				return breakAt
			case cells == 0:
				return i + utf8.RuneLen(r)
			default:
				return i
			}
		}
		cells += w
		if unicode.IsSpace(r) {
			breakAt = i + utf8.RuneLen(r)
		}
	}
	return len(s)
}

// commandHelpMap adapts matched command bindings to the help widget.
type commandHelpMap struct {
	bindings []key.Binding
}

func (m commandHelpMap) ShortHelp() []key.Binding { return m.bindings }

func (m commandHelpMap) FullHelp() [][]key.Binding {
	if len(m.bindings) == 0 {
		return nil
	}
	return [][]key.Binding{m.bindings}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
