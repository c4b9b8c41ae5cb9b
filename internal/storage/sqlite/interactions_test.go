package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionsRepo(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewInteractionsRepo(db)
	item := seedItem(t, db, "", "salarios")

	entries := []core.InteractionEntry{
		{ID: "01J00000000000000000000001", ItemID: item.ID, Action: core.ActionCreated, CreatedAt: t0},
		{ID: "01J00000000000000000000002", ItemID: item.ID, Action: core.ActionMerged, CreatedAt: t0.Add(time.Minute),
			Meta: map[string]any{"incoming_text": "subida de salario"}},
		{ID: "01J00000000000000000000003", ItemID: item.ID, Action: core.ActionDiscussed, EventID: "ev-1", CreatedAt: t0.Add(time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
	}

	// Retried append with the same id is absorbed.
	require.NoError(t, repo.Append(ctx, entries[0]))

	got, err := repo.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, core.ActionCreated, got[0].Action)
	assert.Equal(t, "subida de salario", got[1].Meta["incoming_text"])
	assert.Equal(t, "ev-1", got[2].EventID)

	n, err := repo.CountByAction(ctx, item.ID, core.ActionMerged)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = db.ExecContext(ctx, `UPDATE interaction_log SET action = 'created'`)
	assert.Error(t, err, "log rows are immutable")
	_, err = db.ExecContext(ctx, `DELETE FROM interaction_log`)
	assert.Error(t, err, "log rows cannot be deleted")
}
