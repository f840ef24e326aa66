package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fentz26/planforge/internal/models"
	"github.com/google/uuid"
)

// WriteActivity inserts a collaboration activity record. payload must already
// be JSON-encoded.
func (s *Store) WriteActivity(ctx context.Context, projectID, userID string, kind models.ActivityKind, payload []byte, payloadHash string) (*models.ActivityRecord, error) {
	rec := &models.ActivityRecord{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		UserID:      userID,
		Kind:        kind,
		PayloadHash: payloadHash,
		CreatedAt:   time.Now().UTC(),
	}
	if err := json.Unmarshal(payload, &rec.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (id, project_id, user_id, kind, payload, payload_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, rec.UserID, rec.Kind, string(payload), rec.PayloadHash, rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	return rec, nil
}

// ListActivity returns the most recent activity for a project, newest first.
func (s *Store) ListActivity(ctx context.Context, projectID string, limit int) ([]models.ActivityRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, user_id, kind, payload, payload_hash, created_at
		 FROM activity WHERE project_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var rec models.ActivityRecord
		var payload string
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.UserID, &rec.Kind, &payload, &rec.PayloadHash, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if payload != "" {
			json.Unmarshal([]byte(payload), &rec.Payload)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
