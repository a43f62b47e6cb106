package dataset

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/persona-sft/internal"
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

// Metrics holds the data-quality measurements for a unified dataset.
type Metrics struct {
	TotalExamples     int
	SourceComposition map[string]float64 // source file -> share of examples
	SingleTurnPct     float64
	MultiTurnPct      float64
	GenericPromptPct  float64
	AvgPromptLen      float64
	AvgResponseLen    float64
}

// genericPromptWarnThreshold is the share of generic prompts above which the
// report warns about weak instruction-following signal.
const genericPromptWarnThreshold = 0.5

// Analyze computes quality metrics over a set of records.
func Analyze(records []internal.Record) Metrics {
	m := Metrics{SourceComposition: make(map[string]float64)}
	if len(records) == 0 {
		return m
	}

	sourceCounts := make(map[string]int)
	singleTurn := 0
	generic := 0
	var promptLen, responseLen int

	for _, rec := range records {
		source := rec.SourceFile
		if source == "" {
			source = "unknown"
		}
		sourceCounts[source]++

		var userTurns []internal.Message
		for _, msg := range rec.Messages {
			switch msg.Role {
			case internal.RoleUser:
				userTurns = append(userTurns, msg)
				promptLen += utf8.RuneCountInString(msg.Content)
			case internal.RoleAssistant:
				responseLen += utf8.RuneCountInString(msg.Content)
			}
		}
		if len(userTurns) == 1 {
			singleTurn++
		}
		if len(userTurns) > 0 && IsGenericPrompt(userTurns[len(userTurns)-1].Content) {
			generic++
		}
	}

	total := float64(len(records))
	m.TotalExamples = len(records)
	for source, count := range sourceCounts {
		m.SourceComposition[source] = float64(count) / total
	}
	m.SingleTurnPct = float64(singleTurn) / total
	m.MultiTurnPct = float64(len(records)-singleTurn) / total
	m.GenericPromptPct = float64(generic) / total
	m.AvgPromptLen = float64(promptLen) / total
	m.AvgResponseLen = float64(responseLen) / total
	return m
}

// RenderReport formats the metrics as the human-readable quality report.
func RenderReport(m Metrics) string {
	if m.TotalExamples == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(reportTitleStyle.Render("--- Data Quality Report ---"))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Source Composition:"))
	b.WriteString("\n")
	sources := make([]string, 0, len(m.SourceComposition))
	for source := range m.SourceComposition {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		fmt.Fprintf(&b, "  - %-25s: %6.1f%%\n", source, m.SourceComposition[source]*100)
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Conversational Quality:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  - Single-Turn (Q&A):   %6.1f%%\n", m.SingleTurnPct*100)
	fmt.Fprintf(&b, "  - Multi-Turn (Dialog): %6.1f%%\n", m.MultiTurnPct*100)
	fmt.Fprintf(&b, "  - Meaningful Prompts:  %6.1f%%\n", (1-m.GenericPromptPct)*100)
	fmt.Fprintf(&b, "  - Generic Prompts:     %6.1f%%\n", m.GenericPromptPct*100)

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Length Statistics (characters):"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  - Avg. Prompt Length:   %.0f\n", m.AvgPromptLen)
	fmt.Fprintf(&b, "  - Avg. Response Length: %.0f\n", m.AvgResponseLen)

	if m.GenericPromptPct > genericPromptWarnThreshold {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf(
			"Warning: %.1f%% of examples pair a standalone statement with a generic prompt.",
			m.GenericPromptPct*100)))
		b.WriteString("\n")
		b.WriteString("  This can weaken instruction following. Consider --drop-generic-prompts\n")
		b.WriteString("  or curating more direct Q&A examples.\n")
	}
	b.WriteString("--------------------------------")
	return b.String()
}
