// Package audit records collaboration activity for planforge projects.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fentz26/planforge/internal/models"
)

// Writer is the storage the recorder appends to.
type Writer interface {
	WriteActivity(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload []byte, payloadHash string) (*models.ActivityRecord, error)
}

// Recorder writes collaboration activity records.
type Recorder struct {
	w Writer
}

// NewRecorder creates a new activity recorder.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// Record writes one activity entry for a task-level action.
func (r *Recorder) Record(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload map[string]any) (*models.ActivityRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return r.w.WriteActivity(ctx, projectID, userID, kind, data, HashPayload(data))
}

// HashPayload returns the hex SHA-256 of an encoded payload.
func HashPayload(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
