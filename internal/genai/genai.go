// Package genai turns a goal into a structured project plan and a task into
// a report slide deck using a generative language model.
package genai

import (
	"context"
	"errors"

	"github.com/fentz26/planforge/internal/models"
)

var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrGeneration wraps every transport, HTTP or decode failure.
	ErrGeneration = errors.New("generation failed")
)

// Generator produces plans and report decks.
type Generator interface {
	GeneratePlan(ctx context.Context, goal string) (*models.Plan, error)
	GenerateReportDeck(ctx context.Context, task models.Task) (*models.SlideDeck, error)
	SetAPIKey(key string)
}
