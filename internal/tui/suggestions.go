package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/models"
)

// Suggestions provides autocomplete for the command bar.
type Suggestions struct {
	items        []SuggestionItem
	filtered     []SuggestionItem
	selectedIdx  int
	visible      bool
	prefix       string // "" for commands, "@" for tasks
	currentInput string
}

// SuggestionItem is a single autocomplete entry.
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command" or "task"
}

var commandSuggestions = []SuggestionItem{
	{Text: "add", Description: "Add a task", Type: "command"},
	{Text: "rename", Description: "Rename the selected task", Type: "command"},
	{Text: "describe", Description: "Set the task description", Type: "command"},
	{Text: "status", Description: "Set the task status", Type: "command"},
	{Text: "delete", Description: "Delete the selected task", Type: "command"},
	{Text: "sub", Description: "Add a sub-step", Type: "command"},
	{Text: "sub-status", Description: "Set a sub-step status", Type: "command"},
	{Text: "sub-move", Description: "Move a sub-step on the canvas", Type: "command"},
	{Text: "sub-rm", Description: "Remove a sub-step", Type: "command"},
	{Text: "attach", Description: "Attach a file or link", Type: "command"},
	{Text: "detach", Description: "Remove an attachment", Type: "command"},
	{Text: "decide", Description: "Record a decision", Type: "command"},
	{Text: "decision", Description: "Update a decision status", Type: "command"},
	{Text: "decision-rm", Description: "Remove a decision", Type: "command"},
	{Text: "owner", Description: "Set who is responsible", Type: "command"},
	{Text: "due", Description: "Set the due date", Type: "command"},
	{Text: "target", Description: "Set the numerical target", Type: "command"},
	{Text: "resources", Description: "Set required resources", Type: "command"},
	{Text: "note", Description: "Set task notes", Type: "command"},
	{Text: "canvas", Description: "Resize the sub-step canvas", Type: "command"},
	{Text: "deck", Description: "Generate a report deck", Type: "command"},
	{Text: "slides", Description: "Edit the report deck", Type: "command"},
	{Text: "new", Description: "Start a new project", Type: "command"},
	{Text: "projects", Description: "Open a saved project", Type: "command"},
	{Text: "key", Description: "Set the Gemini API key", Type: "command"},
	{Text: "login", Description: "Sign in", Type: "command"},
	{Text: "logout", Description: "Sign out", Type: "command"},
	{Text: "whoami", Description: "Show the signed-in user", Type: "command"},
	{Text: "quit", Description: "Exit", Type: "command"},
}

// NewSuggestions creates a new suggestions handler.
func NewSuggestions() *Suggestions {
	return &Suggestions{items: commandSuggestions}
}

// Update refilters for the current input. Suggestions show while the first
// word is being typed.
func (s *Suggestions) Update(input string) {
	s.currentInput = input
	if input == "" || strings.Contains(input, " ") {
		s.visible = false
		s.filtered = nil
		return
	}

	if strings.HasPrefix(input, "@") {
		if s.prefix != "@" {
			s.items = nil
		}
		s.prefix = "@"
		s.visible = true
		s.filter(strings.ToLower(strings.TrimPrefix(input, "@")))
		return
	}

	s.prefix = ""
	s.items = commandSuggestions
	s.visible = true
	s.filter(strings.ToLower(strings.TrimPrefix(input, "/")))
}

// SetTasks supplies task titles for "@" references.
func (s *Suggestions) SetTasks(tasks []models.Task) {
	if s.prefix != "@" {
		return
	}
	s.items = make([]SuggestionItem, len(tasks))
	for i, t := range tasks {
		s.items[i] = SuggestionItem{
			Text:        "@" + t.Title,
			Description: statusLabel(t.Status),
			Type:        "task",
		}
	}
	if s.visible {
		s.filter(strings.ToLower(strings.TrimPrefix(s.currentInput, "@")))
	}
}

func (s *Suggestions) filter(query string) {
	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		text := strings.ToLower(strings.TrimPrefix(item.Text, "@"))
		if query == "" || strings.HasPrefix(text, query) {
			s.filtered = append(s.filtered, item)
		}
	}
	s.selectedIdx = 0
}

// Next moves to the next suggestion.
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion.
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the highlighted suggestion.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible reports whether the dropdown has anything to show.
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(max(10, width-4))

	selectedStyle := lipgloss.NewStyle().
		Background(colorPrimary).
		Foreground(colorText).
		Bold(true)

	header := "Commands"
	if s.prefix == "@" {
		header = "Tasks"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render(header))
	b.WriteString("\n")

	const maxVisible = 5
	start := 0
	if s.selectedIdx >= maxVisible {
		start = s.selectedIdx - maxVisible + 1
	}
	for i := start; i < len(s.filtered) && i < start+maxVisible; i++ {
		item := s.filtered[i]
		var line string
		if i == s.selectedIdx {
			line = selectedStyle.Render("> " + item.Text)
			if item.Description != "" {
				line += " " + selectedStyle.Render(item.Description)
			}
		} else {
			line = textStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + mutedStyle.Italic(true).Render(item.Description)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if more := len(s.filtered) - (start + maxVisible); more > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  ... and %d more", more)))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
