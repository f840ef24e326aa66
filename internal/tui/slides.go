package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/controller"
	"github.com/fentz26/planforge/internal/models"
)

// SlideEditor edits a copy of a report deck. Nothing reaches the reducer
// until the deck is saved.
type SlideEditor struct {
	taskID  string
	deck    models.SlideDeck
	index   int
	editing bool
	dirty   bool
	newID   func() string

	title textinput.Model
	body  textarea.Model

	width, height int
}

// NewSlideEditor opens an editor on es.
func NewSlideEditor(es controller.SlideEditorState, newID func() string) *SlideEditor {
	ti := textinput.New()
	ti.Placeholder = "Slide title"
	ti.CharLimit = 200
	ti.Prompt = "Title: "

	ta := textarea.New()
	ta.Placeholder = "Slide content (markdown)"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0

	deck := es.Deck
	deck.Slides = slices.Clone(deck.Slides)
	return &SlideEditor{
		taskID: es.TaskID,
		deck:   deck,
		newID:  newID,
		title:  ti,
		body:   ta,
	}
}

// TaskID is the task whose deck is open.
func (e *SlideEditor) TaskID() string { return e.taskID }

// Editing reports whether a slide is being edited.
func (e *SlideEditor) Editing() bool { return e.editing }

// SetSize sets the editor dimensions.
func (e *SlideEditor) SetSize(w, h int) {
	e.width, e.height = w, h
	e.title.Width = max(10, w-12)
	e.body.SetWidth(max(10, w-4))
	e.body.SetHeight(max(3, h-10))
}

// Update handles a key. It returns an event for the reducer when the deck
// is saved or the editor is closed.
func (e *SlideEditor) Update(msg tea.KeyMsg) (tea.Cmd, controller.Event) {
	if e.editing {
		switch msg.String() {
		case "esc":
			e.commitSlide()
			e.stopEditing()
			return nil, nil
		case "ctrl+s":
			e.commitSlide()
			e.stopEditing()
			return nil, e.save()
		case "tab":
			if e.title.Focused() {
				e.title.Blur()
				return e.body.Focus(), nil
			}
			e.body.Blur()
			return e.title.Focus(), nil
		}
		var cmd tea.Cmd
		if e.title.Focused() {
			e.title, cmd = e.title.Update(msg)
		} else {
			e.body, cmd = e.body.Update(msg)
		}
		return cmd, nil
	}

	switch msg.String() {
	case "esc", "q":
		return nil, controller.CloseSlideEditor{}
	case "left", "h", "k", "up":
		if e.index > 0 {
			e.index--
		}
	case "right", "l", "j", "down":
		if e.index < len(e.deck.Slides)-1 {
			e.index++
		}
	case "e", "enter":
		if len(e.deck.Slides) == 0 {
			return nil, nil
		}
		return e.startEditing(), nil
	case "n":
		slide := models.Slide{ID: e.newID(), Title: "New slide"}
		at := min(e.index+1, len(e.deck.Slides))
		e.deck.Slides = slices.Insert(e.deck.Slides, at, slide)
		e.index = at
		e.dirty = true
		return e.startEditing(), nil
	case "x", "delete":
		if len(e.deck.Slides) == 0 {
			return nil, nil
		}
		e.deck.Slides = slices.Delete(e.deck.Slides, e.index, e.index+1)
		e.index = min(e.index, max(0, len(e.deck.Slides)-1))
		e.dirty = true
	case "ctrl+s", "s":
		return nil, e.save()
	}
	return nil, nil
}

func (e *SlideEditor) save() controller.Event {
	e.dirty = false
	return controller.SaveSlideDeck{Deck: e.deck}
}

func (e *SlideEditor) startEditing() tea.Cmd {
	s := e.deck.Slides[e.index]
	e.title.SetValue(s.Title)
	e.body.SetValue(s.Content)
	e.editing = true
	e.title.Blur()
	return e.body.Focus()
}

func (e *SlideEditor) stopEditing() {
	e.editing = false
	e.title.Blur()
	e.body.Blur()
}

func (e *SlideEditor) commitSlide() {
	if e.index >= len(e.deck.Slides) {
		return
	}
	s := &e.deck.Slides[e.index]
	title, content := strings.TrimSpace(e.title.Value()), e.body.Value()
	if s.Title != title || s.Content != content {
		s.Title, s.Content = title, content
		e.dirty = true
	}
}

// View renders the editor.
func (e *SlideEditor) View() string {
	var b strings.Builder

	header := titleStyle.Render("Report deck: " + e.deck.Title)
	if e.dirty {
		header += " " + lipgloss.NewStyle().Foreground(colorWarning).Render("(unsaved)")
	}
	b.WriteString(header + "\n")

	if len(e.deck.Slides) == 0 {
		b.WriteString("\n" + mutedStyle.Render("This deck has no slides.") + "\n\n")
		b.WriteString(helpStyle.Render("n new slide • s save • esc close"))
		return b.String()
	}

	b.WriteString(mutedStyle.Render(fmt.Sprintf("Slide %d of %d", e.index+1, len(e.deck.Slides))) + "\n\n")

	if e.editing {
		b.WriteString(e.title.View() + "\n\n")
		b.WriteString(e.body.View() + "\n\n")
		b.WriteString(helpStyle.Render("tab switch field • esc done • ctrl+s save"))
		return b.String()
	}

	s := e.deck.Slides[e.index]
	preview := renderMarkdown(slideMarkdown(s.Title, s.Content), max(10, e.width-6))
	b.WriteString(panelStyle.Width(max(10, e.width-2)).Height(max(3, e.height-8)).Render(preview) + "\n")
	if s.Notes != "" {
		b.WriteString(mutedStyle.Render("Notes: "+s.Notes) + "\n")
	}
	b.WriteString(helpStyle.Render("←/→ navigate • e edit • n new • x delete • s save • esc close"))
	return b.String()
}
