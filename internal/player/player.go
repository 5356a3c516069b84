// Package player opens held audio in an external program while the TUI is
// suspended.
package player

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// EnvVar overrides the player command, e.g. "mpv --no-video".
const EnvVar = "DOCVOICE_PLAYER"

// ErrNoPlayer is returned when no player is configured and the platform has
// no default opener.
var ErrNoPlayer = errors.New("no audio player available")

// Launcher opens a playable location.
type Launcher interface {
	Launch(location string) tea.Cmd
}

// DoneMsg is sent once the player exits.
type DoneMsg struct {
	Location string
	Err      error
}

// External runs a player as a child process. An empty Cmd picks the
// platform opener.
type External struct {
	Cmd string
}

// Launch suspends the program, runs the player on location and resumes when
// it exits.
func (e *External) Launch(location string) tea.Cmd {
	c, err := Command(e.Cmd, runtime.GOOS, location)
	if err != nil {
		return func() tea.Msg {
			return DoneMsg{Location: location, Err: err}
		}
	}

	return tea.ExecProcess(c, func(err error) tea.Msg {
		return DoneMsg{Location: location, Err: err}
	})
}

// Command builds the invocation that plays location. player may carry its
// own arguments; the location is appended last.
//
//nolint:gosec // subprocess launching
func Command(player, goos, location string) (*exec.Cmd, error) {
	args := strings.Fields(player)
	if len(args) == 0 {
		switch goos {
		case "darwin":
			// blocking open so the TUI resumes when playback ends
			args = []string{"open", "-W"}
		case "linux", "freebsd", "netbsd", "openbsd":
			args = []string{"xdg-open"}
		case "windows":
			args = []string{"cmd", "/c", "start", "/wait", ""}
		default:
			return nil, fmt.Errorf("%w on %s: set %s", ErrNoPlayer, goos, EnvVar)
		}
	}

	args = append(args, location)

	return exec.CommandContext(context.Background(), args[0], args[1:]...), nil
}
