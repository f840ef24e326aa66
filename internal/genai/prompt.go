package genai

import (
	"fmt"
	"strings"

	"github.com/fentz26/planforge/internal/models"
)

const planPrompt = `You are a project planning assistant.
Break the following goal into a concrete project plan.

Goal: %s

Respond with JSON only, using this shape:
{
  "projectTitle": string,
  "projectGoal": string,
  "targetDate": "YYYY-MM-DD",
  "tasks": [
    {"id": string, "title": string, "description": string,
     "status": "pending", "dependencies": [task ids]}
  ],
  "ganttData": [
    {"id": string, "name": string, "start": "YYYY-MM-DD", "end": "YYYY-MM-DD",
     "progress": 0, "type": "task" | "milestone", "dependencies": [ids]}
  ]
}
Use between 3 and 10 tasks. Dependencies must reference ids in the list.`

const deckPrompt = `You are preparing a short status report as slides.

Task: %s
Description: %s
Status: %s
%s
Respond with JSON only, using this shape:
{"title": string, "slides": [{"title": string, "content": markdown string, "notes": string}]}
Use between 3 and 6 slides.`

func buildPlanPrompt(goal string) string {
	return fmt.Sprintf(planPrompt, strings.TrimSpace(goal))
}

func buildDeckPrompt(t models.Task) string {
	var b strings.Builder
	d := t.ExtendedDetails
	if d.Responsible != "" {
		fmt.Fprintf(&b, "Responsible: %s\n", d.Responsible)
	}
	if d.DueDate != "" {
		fmt.Fprintf(&b, "Due: %s\n", d.DueDate)
	}
	if d.NumericalTarget != nil {
		fmt.Fprintf(&b, "Target: %g\n", *d.NumericalTarget)
	}
	if len(d.SubSteps) > 0 {
		b.WriteString("Sub-steps:\n")
		for _, s := range d.SubSteps {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Title, s.Status)
		}
	}
	if len(d.Decisions) > 0 {
		b.WriteString("Decisions:\n")
		for _, dec := range d.Decisions {
			fmt.Fprintf(&b, "- %s [%s]\n", dec.Title, dec.Status)
		}
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", d.Notes)
	}
	return fmt.Sprintf(deckPrompt, t.Title, t.Description, t.Status, b.String())
}
