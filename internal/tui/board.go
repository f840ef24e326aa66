package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/models"
)

// cardHeight is the rendered height of one card plus its connector.
const cardHeight = 6

// renderBoard renders tasks as a top-down flow. Only the cards that fit in
// height are drawn, windowed around cursor.
func renderBoard(tasks []models.Task, cursor int, selectedID string, width, height int) string {
	if len(tasks) == 0 {
		return mutedStyle.Render("No tasks. Press a to add one.")
	}

	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}

	visible := max(1, height/cardHeight)
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := min(len(tasks), start+visible)

	var b strings.Builder
	if start > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  ▲ %d more", start)) + "\n")
	}
	for i := start; i < end; i++ {
		t := tasks[i]
		b.WriteString(renderCard(i, t, titles, i == cursor, t.ID == selectedID, width))
		b.WriteString("\n")
		if i < len(tasks)-1 {
			b.WriteString(mutedStyle.Render("   │") + "\n")
		}
	}
	if end < len(tasks) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  ▼ %d more", len(tasks)-end)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCard(i int, t models.Task, titles map[string]string, focused, open bool, width int) string {
	style := cardStyle
	if focused {
		style = selectedCardStyle
	}
	style = style.Width(max(20, width-2))

	marker := " "
	if open {
		marker = accentStyle.Render("»")
	}
	head := fmt.Sprintf("%s %d. %s", marker, i+1, textStyle.Bold(true).Render(t.Title))

	meta := []string{formatStatus(t.Status)}
	d := t.ExtendedDetails
	if n := len(d.SubSteps); n > 0 {
		meta = append(meta, fmt.Sprintf("%d/%d steps", completedSubSteps(d.SubSteps), n))
	}
	if d.Responsible != "" {
		meta = append(meta, "@"+d.Responsible)
	}
	if d.DueDate != "" {
		meta = append(meta, "due "+d.DueDate)
	}
	if d.ReportDeck != nil {
		meta = append(meta, fmt.Sprintf("deck: %d slides", len(d.ReportDeck.Slides)))
	}

	lines := []string{head, strings.Join(meta, mutedStyle.Render(" • "))}
	if len(t.Dependencies) > 0 {
		deps := make([]string, 0, len(t.Dependencies))
		for _, id := range t.Dependencies {
			if title, ok := titles[id]; ok {
				deps = append(deps, title)
			} else {
				deps = append(deps, id)
			}
		}
		lines = append(lines, mutedStyle.Render("after: "+strings.Join(deps, ", ")))
	} else {
		lines = append(lines, "")
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func completedSubSteps(subs []models.SubStep) int {
	n := 0
	for _, s := range subs {
		if s.Status == models.SubStepCompleted {
			n++
		}
	}
	return n
}
