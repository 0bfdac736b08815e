package tui

import (
	"fmt"
	"strings"

	"charm.land/glamour/v2"
	"charm.land/lipgloss/v2"
	"github.com/mark3labs/shipflow/internal/flow"
)

// renderMarkdown renders markdown content using glamour.
// Falls back to plain text wrapping if rendering fails.
func renderMarkdown(content string, width int) string {
	// Cap width to 120 for readability
	if width > 120 {
		width = 120
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(content)
	}

	rendered, err := r.Render(content)
	if err != nil {
		return lipgloss.NewStyle().Width(width).Render(content)
	}

	// Remove trailing newline that glamour adds
	return strings.TrimSuffix(rendered, "\n")
}

// SummaryMarkdown describes a finished run as markdown.
func SummaryMarkdown(res flow.Result) string {
	var b strings.Builder

	if res.Cancelled {
		b.WriteString("# Checkout cancelled\n\nNo shipping details were confirmed.\n")
		return b.String()
	}

	info := res.ShippingInformation
	b.WriteString("# Shipping details confirmed\n\n")
	b.WriteString("## Address\n\n")
	if info.Name != "" {
		fmt.Fprintf(&b, "**%s**  \n", info.Name)
	}
	lines := []string{
		info.Address.Line1,
		info.Address.Line2,
		strings.TrimSpace(strings.Join(nonEmpty(info.Address.City, info.Address.State, info.Address.PostalCode), " ")),
		info.Address.Country,
	}
	for _, l := range nonEmpty(lines...) {
		fmt.Fprintf(&b, "%s  \n", l)
	}
	if info.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s\n", info.Phone)
	}

	if m := res.ShippingMethod; m != nil {
		b.WriteString("\n## Shipping method\n\n")
		fmt.Fprintf(&b, "%s: %s\n", m.Label, m.DisplayAmount())
		if m.Detail != "" {
			fmt.Fprintf(&b, "\n_%s_\n", m.Detail)
		}
	}
	return b.String()
}

// RenderSummary renders the completion summary for the terminal.
func RenderSummary(res flow.Result, width int) string {
	return renderMarkdown(SummaryMarkdown(res), width)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
