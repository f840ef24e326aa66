package controller

import "github.com/fentz26/planforge/internal/models"

// Pure list transformations. None of them write to the input slices.

func replaceTask(tasks []models.Task, t models.Task) ([]models.Task, bool) {
	out := make([]models.Task, len(tasks))
	found := false
	for i, cur := range tasks {
		if cur.ID == t.ID {
			out[i] = t
			found = true
			continue
		}
		out[i] = cur
	}
	return out, found
}

func removeTask(tasks []models.Task, id string) ([]models.Task, *models.Task) {
	out := make([]models.Task, 0, len(tasks))
	var removed *models.Task
	for _, cur := range tasks {
		if cur.ID == id && removed == nil {
			c := cur
			removed = &c
			continue
		}
		out = append(out, cur)
	}
	return out, removed
}

func appendTask(tasks []models.Task, t models.Task) []models.Task {
	out := make([]models.Task, len(tasks), len(tasks)+1)
	copy(out, tasks)
	return append(out, t)
}

// withDetails returns t carrying d. Every collection in d must already be a
// fresh slice if it differs from t's.
func withDetails(t models.Task, d models.ExtendedDetails) models.Task {
	t.ExtendedDetails = d
	return t
}

func addSubStep(t models.Task, s models.SubStep) models.Task {
	d := t.ExtendedDetails
	subs := make([]models.SubStep, len(d.SubSteps), len(d.SubSteps)+1)
	copy(subs, d.SubSteps)
	d.SubSteps = append(subs, s)
	return withDetails(t, d)
}

func mapSubSteps(t models.Task, id string, fn func(models.SubStep) models.SubStep) models.Task {
	d := t.ExtendedDetails
	subs := make([]models.SubStep, len(d.SubSteps))
	for i, s := range d.SubSteps {
		if s.ID == id {
			s = fn(s)
		}
		subs[i] = s
	}
	d.SubSteps = subs
	return withDetails(t, d)
}

func deleteSubStep(t models.Task, id string) models.Task {
	d := t.ExtendedDetails
	subs := make([]models.SubStep, 0, len(d.SubSteps))
	for _, s := range d.SubSteps {
		if s.ID != id {
			subs = append(subs, s)
		}
	}
	d.SubSteps = subs
	return withDetails(t, d)
}

func addAttachment(t models.Task, a models.Attachment) models.Task {
	d := t.ExtendedDetails
	list := make([]models.Attachment, len(d.Attachments), len(d.Attachments)+1)
	copy(list, d.Attachments)
	d.Attachments = append(list, a)
	return withDetails(t, d)
}

func hasAttachment(list []models.Attachment, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}

func deleteAttachment(t models.Task, id string) models.Task {
	d := t.ExtendedDetails
	list := make([]models.Attachment, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		if a.ID != id {
			list = append(list, a)
		}
	}
	d.Attachments = list
	return withDetails(t, d)
}

func addDecision(t models.Task, dec models.Decision) models.Task {
	d := t.ExtendedDetails
	list := make([]models.Decision, len(d.Decisions), len(d.Decisions)+1)
	copy(list, d.Decisions)
	d.Decisions = append(list, dec)
	return withDetails(t, d)
}

func hasDecision(list []models.Decision, id string) bool {
	for _, d := range list {
		if d.ID == id {
			return true
		}
	}
	return false
}

func updateDecision(t models.Task, id string, p models.DecisionPatch) models.Task {
	d := t.ExtendedDetails
	list := make([]models.Decision, len(d.Decisions))
	for i, dec := range d.Decisions {
		if dec.ID == id {
			dec = p.Apply(dec)
		}
		list[i] = dec
	}
	d.Decisions = list
	return withDetails(t, d)
}

func deleteDecision(t models.Task, id string) models.Task {
	d := t.ExtendedDetails
	list := make([]models.Decision, 0, len(d.Decisions))
	for _, dec := range d.Decisions {
		if dec.ID != id {
			list = append(list, dec)
		}
	}
	d.Decisions = list
	return withDetails(t, d)
}

func setReportDeck(t models.Task, deck models.SlideDeck) models.Task {
	d := t.ExtendedDetails
	slides := make([]models.Slide, len(deck.Slides))
	copy(slides, deck.Slides)
	deck.Slides = slides
	d.ReportDeck = &deck
	return withDetails(t, d)
}

func planTasks(plan models.Plan, newID func() string) []models.Task {
	out := make([]models.Task, len(plan.Tasks))
	for i, t := range plan.Tasks {
		if t.ID == "" {
			t.ID = newID()
		}
		if !t.Status.Valid() {
			t.Status = models.TaskStatusPending
		}
		t.ExtendedDetails = models.DefaultExtendedDetails()
		out[i] = t
	}
	return out
}

func normalizeTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = models.NormalizeTask(t)
	}
	return out
}
