package models

import "time"

// Default sub-step canvas dimensions.
const (
	DefaultCanvasWidth  = 1200
	DefaultCanvasHeight = 800
)

// Layout of newly created sub-steps on the canvas.
const (
	SubStepColumnX  = 10
	SubStepRowStep  = 90
	SubStepRowStart = 10
)

// ExtendedDetails is the editable per-task payload beyond its basic fields.
type ExtendedDetails struct {
	SubSteps          []SubStep       `json:"subSteps"`
	Resources         string          `json:"resources"`
	Responsible       string          `json:"responsible"`
	Notes             string          `json:"notes"`
	NumericalTarget   *float64        `json:"numericalTarget,omitempty"`
	DueDate           string          `json:"dueDate"`
	ReportDeck        *SlideDeck      `json:"reportDeck,omitempty"`
	ResourceMatrix    *ResourceMatrix `json:"resourceMatrix"`
	Attachments       []Attachment    `json:"attachments"`
	Decisions         []Decision      `json:"decisions"`
	SubStepCanvasSize CanvasSize      `json:"subStepCanvasSize"`
}

// DefaultExtendedDetails returns the details attached to new and generated tasks.
func DefaultExtendedDetails() ExtendedDetails {
	return ExtendedDetails{
		SubSteps:          []SubStep{},
		Attachments:       []Attachment{},
		Decisions:         []Decision{},
		SubStepCanvasSize: CanvasSize{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight},
	}
}

// NormalizeTask fills in missing detail collections and the canvas size
// while keeping anything the task already carries.
func NormalizeTask(t Task) Task {
	d := t.ExtendedDetails
	if d.SubSteps == nil {
		d.SubSteps = []SubStep{}
	}
	if d.Attachments == nil {
		d.Attachments = []Attachment{}
	}
	if d.Decisions == nil {
		d.Decisions = []Decision{}
	}
	if d.SubStepCanvasSize.Width <= 0 || d.SubStepCanvasSize.Height <= 0 {
		d.SubStepCanvasSize = CanvasSize{Width: DefaultCanvasWidth, Height: DefaultCanvasHeight}
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	t.ExtendedDetails = d
	return t
}

// SubStepStatus is the state of a sub-step.
type SubStepStatus string

const (
	SubStepPending    SubStepStatus = "pending"
	SubStepInProgress SubStepStatus = "in_progress"
	SubStepCompleted  SubStepStatus = "completed"
)

// Next cycles through the sub-step statuses.
func (s SubStepStatus) Next() SubStepStatus {
	switch s {
	case SubStepPending:
		return SubStepInProgress
	case SubStepInProgress:
		return SubStepCompleted
	default:
		return SubStepPending
	}
}

// Position is a point on the sub-step canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultSubStepPosition lays sub-step i out in a single column.
func DefaultSubStepPosition(i int) Position {
	return Position{X: SubStepColumnX, Y: float64(i*SubStepRowStep + SubStepRowStart)}
}

// SubStep is a child step of a task.
type SubStep struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      SubStepStatus `json:"status"`
	Position    Position      `json:"position"`
}

// CanvasSize is the size of the sub-step layout area.
type CanvasSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Attachment is a file reference attached to a task.
type Attachment struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	MimeType string    `json:"type"`
	Size     int64     `json:"size"`
	URL      string    `json:"url"`
	AddedAt  time.Time `json:"addedAt"`
}

// DecisionStatus is the state of a decision.
type DecisionStatus string

const (
	DecisionOpen     DecisionStatus = "open"
	DecisionDecided  DecisionStatus = "decided"
	DecisionDeferred DecisionStatus = "deferred"
)

// Decision records a choice made while executing a task.
type Decision struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      DecisionStatus `json:"status"`
	DecidedBy   string         `json:"decidedBy,omitempty"`
	Date        string         `json:"date,omitempty"`
}

// DecisionPatch is a partial update of a decision.
type DecisionPatch struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Status      *DecisionStatus `json:"status,omitempty"`
	DecidedBy   *string         `json:"decidedBy,omitempty"`
	Date        *string         `json:"date,omitempty"`
}

// Apply returns d with the non-nil patch fields applied.
func (p DecisionPatch) Apply(d Decision) Decision {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	if p.DecidedBy != nil {
		d.DecidedBy = *p.DecidedBy
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	return d
}

// DetailsPatch edits the free-text fields of a task's details.
type DetailsPatch struct {
	Resources       *string         `json:"resources,omitempty"`
	Responsible     *string         `json:"responsible,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	DueDate         *string         `json:"dueDate,omitempty"`
	NumericalTarget *float64        `json:"numericalTarget,omitempty"`
	ClearTarget     bool            `json:"clearTarget,omitempty"`
	ResourceMatrix  *ResourceMatrix `json:"resourceMatrix,omitempty"`
}

// Apply returns d with the patch applied.
func (p DetailsPatch) Apply(d ExtendedDetails) ExtendedDetails {
	if p.Resources != nil {
		d.Resources = *p.Resources
	}
	if p.Responsible != nil {
		d.Responsible = *p.Responsible
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	if p.DueDate != nil {
		d.DueDate = *p.DueDate
	}
	if p.ClearTarget {
		d.NumericalTarget = nil
	} else if p.NumericalTarget != nil {
		v := *p.NumericalTarget
		d.NumericalTarget = &v
	}
	if p.ResourceMatrix != nil {
		d.ResourceMatrix = p.ResourceMatrix
	}
	return d
}

// ResourceMatrix maps resources against roles or phases.
type ResourceMatrix struct {
	Columns []string      `json:"columns"`
	Rows    []ResourceRow `json:"rows"`
}

// ResourceRow is one labelled row of a resource matrix.
type ResourceRow struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// SlideDeck is a report artifact attached to a task.
type SlideDeck struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Slide is one page of a deck. Content is markdown.
type Slide struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Notes   string `json:"notes,omitempty"`
}
