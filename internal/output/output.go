package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/joescharf/codereview/internal/models"
)

// UI provides colored output and respects verbose mode.
type UI struct {
	Verbose bool
	Out     io.Writer
	ErrOut  io.Writer
}

// New creates a UI with default stdout/stderr writers.
func New() *UI {
	return &UI{
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

var (
	infoPrefix    = color.New(color.FgHiBlue).Sprint("i")
	successPrefix = color.New(color.FgHiGreen).Sprint("\u2713")
	warningPrefix = color.New(color.FgHiYellow).Sprint("\u26a0")
	errorPrefix   = color.New(color.FgHiRed).Sprint("\u2717")
	verbosePrefix = color.New(color.FgHiBlue).Sprint("  \u2192")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
)

// Cyan returns a cyan-colored string.
func Cyan(s string) string { return cyan(s) }

// Green returns a green-colored string.
func Green(s string) string { return green(s) }

// Yellow returns a yellow-colored string.
func Yellow(s string) string { return yellow(s) }

// Red returns a red-colored string.
func Red(s string) string { return red(s) }

// KindColor returns the review item kind colored by severity.
func KindColor(kind models.ItemKind) string {
	switch kind {
	case models.ItemKindError:
		return red(string(kind))
	case models.ItemKindWarning:
		return yellow(string(kind))
	default:
		return string(kind)
	}
}

// VerdictColor returns the verdict colored by outcome.
func VerdictColor(v models.Verdict) string {
	switch v {
	case models.VerdictErrors:
		return red(string(v))
	case models.VerdictImprovement:
		return yellow(string(v))
	case models.VerdictCorrect:
		return green(string(v))
	default:
		return string(v)
	}
}

func (u *UI) Info(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", infoPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", warningPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) VerboseLog(format string, a ...any) {
	if u.Verbose {
		fmt.Fprintf(u.Out, "%s %s\n", verbosePrefix, fmt.Sprintf(format, a...))
	}
}

// Table creates a new tablewriter configured with consistent styling.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
