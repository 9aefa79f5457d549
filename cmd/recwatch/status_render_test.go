package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestStatusReportPlainOutputForNonTerminal(t *testing.T) {
	report := newStatusReport(&bytes.Buffer{})
	report.section("Checks")
	report.row("Parse service", stateFail, "connection refused")
	report.section("Daemon")
	report.row("Daemon", stateWarn, "")

	got := report.String()
	if strings.Contains(got, "\x1b[") {
		t.Fatalf("expected no ANSI codes, got %q", got)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines with a blank separator, got %q", lines)
	}
	requireContains(t, lines[1], "Parse service:")
	requireContains(t, lines[1], "[FAIL] connection refused")
	if lines[2] != "" {
		t.Fatalf("expected blank line between sections, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[4], "[WARN]") {
		t.Fatalf("expected bare state without detail, got %q", lines[4])
	}
}
