package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// startCommand launches a command without waiting for it; replaced in tests.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// browserCommands maps GOOS to the launcher that opens a URL in the default browser.
var browserCommands = map[string][]string{
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"windows": {"cmd", "/c", "start"},
}

// OpenBrowser opens url in the default browser, e.g. the Last.fm authorization page or the local dashboard.
func OpenBrowser(url string) error {
	rt := getRuntime()
	launcher, ok := browserCommands[rt]
	if !ok {
		return fmt.Errorf("%w: opening a browser on %s", ErrNotImplemented, rt)
	}

	args := append(append([]string(nil), launcher[1:]...), url)
	if err := startCommand(launcher[0], args...); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
