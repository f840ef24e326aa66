package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/models"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(12)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// renderTaskDetail renders the detail panel body for t. The caller scrolls
// it in a viewport.
func renderTaskDetail(t models.Task, width int) string {
	var b strings.Builder
	d := t.ExtendedDetails
	inner := max(20, width-4)

	b.WriteString(titleStyle.Render(t.Title) + "\n")
	b.WriteString(formatStatus(t.Status) + "\n")
	if t.Description != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Width(inner).Render(t.Description) + "\n")
	}

	b.WriteString(sectionStyle.Render("Details") + "\n")
	field(&b, "Owner", d.Responsible)
	field(&b, "Due", d.DueDate)
	target := ""
	if d.NumericalTarget != nil {
		target = strconv.FormatFloat(*d.NumericalTarget, 'f', -1, 64)
	}
	field(&b, "Target", target)
	field(&b, "Resources", d.Resources)

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Sub-steps (%d/%d)", completedSubSteps(d.SubSteps), len(d.SubSteps))) + "\n")
	if len(d.SubSteps) == 0 {
		b.WriteString(mutedStyle.Render("  none (sub <title>)") + "\n")
	}
	for i, s := range d.SubSteps {
		b.WriteString(fmt.Sprintf("  %d. %s %s %s\n", i+1, subStepIcon(s.Status), s.Title,
			mutedStyle.Render(fmt.Sprintf("(%.0f,%.0f)", s.Position.X, s.Position.Y))))
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  canvas %dx%d", d.SubStepCanvasSize.Width, d.SubStepCanvasSize.Height)) + "\n")

	b.WriteString(sectionStyle.Render("Attachments") + "\n")
	if len(d.Attachments) == 0 {
		b.WriteString(mutedStyle.Render("  none (attach <name> [url])") + "\n")
	}
	for i, a := range d.Attachments {
		line := fmt.Sprintf("  %d. %s", i+1, a.Name)
		if a.URL != "" {
			line += " " + accentStyle.Render(a.URL)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(sectionStyle.Render("Decisions") + "\n")
	if len(d.Decisions) == 0 {
		b.WriteString(mutedStyle.Render("  none (decide <title>)") + "\n")
	}
	for i, dec := range d.Decisions {
		line := fmt.Sprintf("  %d. %s %s", i+1, dec.Title, mutedStyle.Render("["+string(dec.Status)+"]"))
		if dec.DecidedBy != "" {
			line += mutedStyle.Render(" by " + dec.DecidedBy)
		}
		b.WriteString(line + "\n")
	}

	if d.Notes != "" {
		b.WriteString(sectionStyle.Render("Notes") + "\n")
		b.WriteString(renderMarkdown(d.Notes, inner) + "\n")
	}

	b.WriteString(sectionStyle.Render("Report deck") + "\n")
	if d.ReportDeck == nil {
		b.WriteString(mutedStyle.Render("  none (g to generate)") + "\n")
	} else {
		b.WriteString(fmt.Sprintf("  %s, %d slides %s\n", d.ReportDeck.Title, len(d.ReportDeck.Slides), mutedStyle.Render("(e to edit)")))
	}

	return b.String()
}

func field(b *strings.Builder, label, value string) {
	if value == "" {
		value = mutedStyle.Render("-")
	}
	b.WriteString("  " + labelStyle.Render(label) + value + "\n")
}
