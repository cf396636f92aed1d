package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// renderMarkdown formats assistant replies for the terminal. It falls back to
// the raw text if the renderer cannot be built.
func renderMarkdown(text string) string {
	style := glamour.WithAutoStyle()
	if noColor {
		style = glamour.WithStylePath("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return strings.TrimLeft(out, "\n")
}
