package main

import (
	"context"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
	"github.com/mark3labs/shipflow/internal/logger"
	"github.com/spf13/cobra"
)

const (
	logoText1 = "█▀▀ █ █ █ █▀█ █▀▀ █   █▀█ █ █ █"
	logoText2 = "▄▄█ █▀█ █ █▀▀ █▀  █▄▄ █▄█ ▀▄▀▄▀"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	// Ensure logger is closed on exit
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shipflow",
	Short: "Shipping address and shipping method wizard over an embedded event bus",
}

// renderLogo colors the two logo lines
func renderLogo() string {
	line1 := lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Render(logoText1)
	line2 := lipgloss.NewStyle().Foreground(lipgloss.Color("#b4befe")).Render(logoText2)
	return strings.Join([]string{line1, line2}, "\n")
}

func init() {
	rootCmd.Long = renderLogo() + `

shipflow collects a shipping address and a shipping method in a two-step
wizard. Each address is submitted to an external validator over an embedded
NATS event channel; the validator answers with a verdict and the shipping
methods available for the address.

A built-in validator answers by default. Use --no-validator to leave the
channel open for an external one.`

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(setupCmd)
}
