package client

import "strings"

// handleTabCompletion extends a partially typed command to the longest
// unambiguous prefix. A unique full match also gains a trailing space so
// arguments can follow immediately.
func (a *App) handleTabCompletion() {
	value := a.input.Value()
	if value == "" || !isCommandInput(value, a.cfg.CommandPrefix) {
		return
	}
	if a.input.Position() != len([]rune(value)) {
		return
	}
	if strings.ContainsAny(value, " \t") {
		return
	}

	matches := make([]string, 0, len(a.commands))
	for _, cmd := range a.commands {
		if strings.HasPrefix(cmd.trigger, value) {
			matches = append(matches, cmd.trigger)
		}
	}
	if len(matches) == 0 {
		return
	}

	completed := longestCommonPrefix(matches)
	if len(matches) == 1 {
		completed += " "
	}
	if len(completed) <= len(value) {
		return
	}

	a.input.SetValue(completed)
	a.input.CursorEnd()
}

func longestCommonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, v := range values[1:] {
		n := 0
		for n < len(prefix) && n < len(v) && prefix[n] == v[n] {
			n++
		}
		prefix = prefix[:n]
		if prefix == "" {
			break
		}
	}
	return prefix
}
