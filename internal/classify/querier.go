package classify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nvander/murmur/internal/hypr"
)

// HyprQuerier resolves the foreground window through hyprctl.
type HyprQuerier struct{}

func (HyprQuerier) ActiveWindow(ctx context.Context) (Window, error) {
	window, err := hypr.QueryActiveWindow(ctx)
	if err != nil {
		return Window{}, err
	}

	process := processNameFromPID(window.PID)
	if process == "" {
		process = window.InitialClass
	}
	if process == "" {
		process = window.Class
	}

	return Window{
		ProcessName: process,
		Title:       window.Title,
		Class:       window.Class,
	}, nil
}

// processNameFromPID reads the command name from procfs. Empty on any
// failure; the caller falls back to the window class.
func processNameFromPID(pid int) string {
	if pid <= 0 {
		return ""
	}
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}
