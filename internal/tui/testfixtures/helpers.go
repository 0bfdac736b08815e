package testfixtures

import (
	"strings"
	"testing"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/x/ansi"
	uv "github.com/charmbracelet/ultraviolet"
)

// Initialize test environment
func init() {
	// Set Ascii profile to disable color output for consistent results across CI/platforms
	lipgloss.Writer.Profile = colorprofile.Ascii
}

// Canonical terminal size for all tests
const (
	TestTermWidth  = 120
	TestTermHeight = 40
)

// Conservative timeout for WaitFor (CI compatibility)
const (
	DefaultWaitDuration  = 5 * time.Second
	DefaultCheckInterval = 10 * time.Millisecond
)

// Plain strips styling from rendered output.
func Plain(s string) string {
	return ansi.Strip(s)
}

// RenderPlain draws content on a canonical screen buffer and returns the
// unstyled result.
func RenderPlain(renderFn func(canvas uv.ScreenBuffer)) string {
	canvas := uv.NewScreenBuffer(TestTermWidth, TestTermHeight)
	renderFn(canvas)
	return Plain(canvas.Render())
}

// WaitFor polls cond until it holds or DefaultWaitDuration elapses.
func WaitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(DefaultWaitDuration)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(DefaultCheckInterval)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// Contains checks if the unstyled output contains a substring.
func Contains(s, substr string) bool {
	return strings.Contains(Plain(s), substr)
}
