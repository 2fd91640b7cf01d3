package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"surgitrack/internal/pipeline"
	"surgitrack/internal/session"
	"surgitrack/internal/timeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

// badge tags a rendered line with its outcome.
type badge string

const (
	badgeInfo    badge = "INFO"
	badgeOK      badge = "OK"
	badgeWarn    badge = "WARN"
	badgeError   badge = "ERROR"
	badgeRunning badge = "RUNNING"
)

var badgeColors = map[badge]string{
	badgeInfo:    ansiBlue,
	badgeOK:      ansiGreen,
	badgeWarn:    ansiYellow,
	badgeError:   ansiRed,
	badgeRunning: ansiCyan,
}

var stepBadges = map[pipeline.Status]badge{
	pipeline.StatusPending:    badgeInfo,
	pipeline.StatusProcessing: badgeRunning,
	pipeline.StatusCompleted:  badgeOK,
	pipeline.StatusError:      badgeError,
}

var bandColors = map[timeline.Band]string{
	timeline.BandHigh:   ansiGreen,
	timeline.BandMedium: ansiYellow,
	timeline.BandLow:    ansiRed,
}

const labelColumn = 20

// palette renders terminal lines, adding ANSI color when enabled.
type palette struct {
	color bool
}

// paletteFor enables color when w is a terminal and NO_COLOR is unset.
func paletteFor(w io.Writer) palette {
	if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
		return palette{}
	}
	file, ok := w.(*os.File)
	if !ok {
		return palette{}
	}
	fd := file.Fd()
	return palette{color: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (p palette) paint(code, text string) string {
	if !p.color || code == "" {
		return text
	}
	return code + text + ansiReset
}

// line formats "  <label>: [BADGE] message" with the label padded to a column.
func (p palette) line(label string, b badge, message string) string {
	tag := "[" + string(b) + "]"
	if message != "" {
		tag += " " + message
	}
	return p.paint(badgeColors[b], fmt.Sprintf("  %-*s %s", labelColumn, label+":", tag))
}

func (p palette) header(title string) []string {
	text := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	return []string{p.paint(ansiBlue, text), p.paint(ansiBlue, strings.Repeat("-", len(text)))}
}

// stepRenderer turns successive snapshots into one line per step change.
type stepRenderer struct {
	pal  palette
	seen map[pipeline.StepID]pipeline.Status
}

func newStepRenderer(pal palette) *stepRenderer {
	return &stepRenderer{pal: pal, seen: make(map[pipeline.StepID]pipeline.Status)}
}

func (r *stepRenderer) update(state session.State) []string {
	var lines []string
	for _, step := range state.Steps.List() {
		prev, ok := r.seen[step.ID]
		if !ok {
			prev = pipeline.StatusPending
		}
		if prev == step.Status {
			continue
		}
		r.seen[step.ID] = step.Status
		switch step.Status {
		case pipeline.StatusProcessing:
			lines = append(lines, r.pal.line(step.Name, badgeRunning, step.Description))
		case pipeline.StatusCompleted:
			lines = append(lines, r.pal.line(step.Name, badgeOK, ""))
		case pipeline.StatusError:
			lines = append(lines, r.pal.line(step.Name, badgeError, state.Error))
		}
	}
	return lines
}

func phaseTitle(phase string) string {
	return cases.Title(language.English).String(phase)
}

func renderSteps(steps []pipeline.Step, pal palette) []string {
	lines := make([]string, 0, len(steps))
	for _, step := range steps {
		b, ok := stepBadges[step.Status]
		if !ok {
			b = badgeInfo
		}
		lines = append(lines, pal.line(step.Name, b, string(step.Status)))
	}
	return lines
}

func renderTimeline(t timeline.Timeline, pal palette) string {
	if t.Empty() {
		return "No events detected."
	}
	rows := make([][]string, 0, t.Count())
	for i, event := range t.Events() {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			event.Timestamp,
			strconv.Itoa(event.Frame),
			event.Action,
			pal.paint(bandColors[event.Band()], fmt.Sprintf("%d%%", event.Percent())),
		})
	}
	table := renderTable(
		[]string{"#", "Time", "Frame", "Action", "Confidence"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight},
	)
	return table + "\n" + renderSummary(t.Summary())
}

func renderSummary(summary timeline.Summary) string {
	parts := []string{
		fmt.Sprintf("Events: %d", summary.Count),
		fmt.Sprintf("Duration: %s", summary.Duration),
		fmt.Sprintf("Avg confidence: %d%%", summary.AverageConfidencePercent),
		fmt.Sprintf("Picked up: %d", summary.Pickups),
		fmt.Sprintf("Placed back: %d", summary.Placements),
	}
	return strings.Join(parts, "  ")
}
