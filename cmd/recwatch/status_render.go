package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type checkState int

const (
	stateInfo checkState = iota
	stateOK
	stateWarn
	stateFail
)

var stateStyles = map[checkState]struct {
	label string
	color text.Colors
}{
	stateInfo: {"INFO", text.Colors{text.FgBlue}},
	stateOK:   {"OK", text.Colors{text.FgGreen}},
	stateWarn: {"WARN", text.Colors{text.FgYellow}},
	stateFail: {"FAIL", text.Colors{text.FgRed}},
}

// statusReport accumulates the lines of `recwatch status`, coloured only
// when writing to a terminal.
type statusReport struct {
	color bool
	lines []string
}

func newStatusReport(out io.Writer) *statusReport {
	return &statusReport{color: isTerminal(out)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	r.lines = append(r.lines, r.paint(text.Colors{text.FgBlue}, heading))
}

func (r *statusReport) row(label string, state checkState, detail string) {
	style := stateStyles[state]
	line := fmt.Sprintf("  %-22s [%s]", label+":", style.label)
	if detail != "" {
		line += " " + detail
	}
	r.lines = append(r.lines, r.paint(style.color, line))
}

func (r *statusReport) paint(colors text.Colors, s string) string {
	if !r.color {
		return s
	}
	return colors.Sprint(s)
}

func (r *statusReport) String() string {
	return strings.Join(r.lines, "\n")
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
