package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/fentz26/planforge/internal/models"
	"github.com/fentz26/planforge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	p, err := st.CreateProject(ctx, models.ProjectFields{Title: "P", OwnerID: "u1"})
	require.NoError(t, err)

	r := NewRecorder(st)
	payload := map[string]any{"task_id": "t1", "task_title": "Research"}
	rec, err := r.Record(ctx, p.ID, "u1", models.ActivityTaskUpdated, payload)
	require.NoError(t, err)

	data, _ := json.Marshal(payload)
	assert.Equal(t, HashPayload(data), rec.PayloadHash)
	assert.Len(t, rec.PayloadHash, 64)
	assert.Equal(t, "Research", rec.Payload["task_title"])

	list, err := st.ListActivity(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecord_UnknownKind(t *testing.T) {
	r := NewRecorder(nil)

	_, err := r.Record(context.Background(), "p", "u", models.ActivityKind("task_renamed"), nil)
	assert.Error(t, err)
}

func TestHashPayload_Stable(t *testing.T) {
	a := HashPayload([]byte(`{"a":1}`))
	b := HashPayload([]byte(`{"a":1}`))
	c := HashPayload([]byte(`{"a":2}`))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
