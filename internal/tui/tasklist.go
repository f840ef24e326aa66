package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/planforge/internal/models"
)

var listTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("205"))

// projectItem implements list.Item for the saved project picker.
type projectItem struct {
	summary models.ProjectSummary
}

func (i projectItem) FilterValue() string { return i.summary.Title + " " + i.summary.Goal }
func (i projectItem) Title() string       { return i.summary.Title }
func (i projectItem) Description() string {
	desc := fmt.Sprintf("%d tasks", i.summary.TaskCount)
	if !i.summary.UpdatedAt.IsZero() {
		desc += " • updated " + i.summary.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	return desc
}

// ProjectListModel is the picker over the user's saved projects.
type ProjectListModel struct {
	list  list.Model
	items []models.ProjectSummary
}

// NewProjectListModel creates an empty picker.
func NewProjectListModel() *ProjectListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 60, 20)
	l.Title = "Projects"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = listTitleStyle
	l.SetStatusBarItemName("project", "projects")
	return &ProjectListModel{list: l}
}

// SetSize sets the list dimensions.
func (m *ProjectListModel) SetSize(w, h int) {
	m.list.SetSize(w, h)
}

// SetProjects replaces the items when the snapshot changed.
func (m *ProjectListModel) SetProjects(ps []models.ProjectSummary) tea.Cmd {
	if sameProjects(m.items, ps) {
		return nil
	}
	m.items = ps
	items := make([]list.Item, len(ps))
	for i, p := range ps {
		items[i] = projectItem{summary: p}
	}
	return m.list.SetItems(items)
}

// Selected returns the highlighted project.
func (m *ProjectListModel) Selected() (models.ProjectSummary, bool) {
	item, ok := m.list.SelectedItem().(projectItem)
	if !ok {
		return models.ProjectSummary{}, false
	}
	return item.summary, true
}

// Filtering reports whether the filter input has the keyboard.
func (m *ProjectListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update forwards navigation and filter keys.
func (m *ProjectListModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

// View renders the picker.
func (m *ProjectListModel) View(loading bool) string {
	if loading && len(m.items) == 0 {
		return mutedStyle.Render("Loading projects...")
	}
	if len(m.items) == 0 {
		return mutedStyle.Render("No saved projects yet.") + "\n\n" + helpStyle.Render("Esc to close")
	}
	return m.list.View() + "\n" + helpStyle.Render("Enter open • / filter • Esc close")
}

func sameProjects(a, b []models.ProjectSummary) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
