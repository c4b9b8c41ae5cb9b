package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	toni := seedPerson(t, db, "Toni")

	due := t0.Add(48 * time.Hour)
	item := newItem(toni.ID, "salarios")
	item.DueAt = &due
	item.NeedsEmbedding = true
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Content, got.Content)
	assert.Equal(t, toni.ID, got.PersonID)
	assert.True(t, got.NeedsEmbedding)
	require.NotNil(t, got.DueAt)
	assert.True(t, due.Equal(*got.DueAt))
	assert.Equal(t, core.StatusPending, got.Status)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestItemsRepo_PendingFingerprintIsUnique(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	toni := seedPerson(t, db, "Toni")

	first := seedItem(t, db, toni.ID, "salarios")

	err := repo.Create(ctx, newItem(toni.ID, "salarios"))
	assert.ErrorIs(t, err, core.ErrDuplicate)

	// Same fingerprint without a person is a different scope.
	require.NoError(t, repo.Create(ctx, newItem("", "salarios")))

	found, err := repo.FindPendingByFingerprint(ctx, toni.ID, first.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	// Once discussed, the fingerprint is free again.
	ok, err := repo.TransitionStatus(ctx, first.ID, core.StatusPending, core.StatusDiscussed, t0)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.FindPendingByFingerprint(ctx, toni.ID, first.Fingerprint)
	assert.ErrorIs(t, err, core.ErrNotFound)
	require.NoError(t, repo.Create(ctx, newItem(toni.ID, "salarios")))
}

func TestItemsRepo_UpdateContentVersionCheck(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	item := seedItem(t, db, "", "salarios")

	upd := core.ContentUpdate{
		ID:              item.ID,
		ExpectedVersion: item.Version,
		Content:         "salarios\nsubida de salario",
		UpdatedAt:       t0.Add(time.Minute),
	}
	got, err := repo.UpdateContent(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, "salarios\nsubida de salario", got.Content)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Equal(t, core.StatusPending, got.Status)

	// Stale writer loses.
	_, err = repo.UpdateContent(ctx, upd)
	assert.ErrorIs(t, err, core.ErrConflictingUpdate)
}

func TestItemsRepo_TransitionStatusIsMonotone(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	item := seedItem(t, db, "", "salarios")

	ok, err := repo.TransitionStatus(ctx, item.ID, core.StatusPending, core.StatusArchived, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(ctx, item.ID, core.StatusPending, core.StatusDiscussed, t0)
	require.NoError(t, err)
	assert.False(t, ok, "item already left pending")

	_, err = repo.TransitionStatus(ctx, item.ID, core.StatusArchived, core.StatusPending, t0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestItemsRepo_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	toni := seedPerson(t, db, "Toni")

	a := newItem(toni.ID, "a")
	b := newItem(toni.ID, "b")
	b.CreatedAt = t0.Add(time.Minute)
	b.UpdatedAt = b.CreatedAt
	c := newItem("", "c")
	for _, it := range []core.MemoryItem{b, a, c} {
		require.NoError(t, repo.Create(ctx, it))
	}

	items, err := repo.List(ctx, core.ItemFilter{PersonID: toni.ID, Status: core.StatusPending})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)

	items, err = repo.List(ctx, core.ItemFilter{Newest: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)

	many, err := repo.GetMany(ctx, []string{a.ID, c.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestItemsRepo_ReconciliationQueries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	toni := seedPerson(t, db, "Toni")

	flagged := newItem(toni.ID, "flagged")
	flagged.NeedsEmbedding = true
	require.NoError(t, repo.Create(ctx, flagged))
	logged := seedItem(t, db, "", "logged")

	require.NoError(t, NewInteractionsRepo(db).Append(ctx, core.InteractionEntry{
		ID: "01J00000000000000000000001", ItemID: logged.ID, Action: core.ActionCreated, CreatedAt: t0,
	}))

	needing, err := repo.ListNeedingEmbedding(ctx, 10)
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, flagged.ID, needing[0].ID)

	require.NoError(t, repo.SetNeedsEmbedding(ctx, flagged.ID, false))
	needing, err = repo.ListNeedingEmbedding(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, needing)

	unlogged, err := repo.ListWithoutLog(ctx, t0.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, unlogged, 1)
	assert.Equal(t, flagged.ID, unlogged[0].ID)

	unlogged, err = repo.ListWithoutLog(ctx, t0, 10)
	require.NoError(t, err)
	assert.Empty(t, unlogged, "items newer than the cutoff are skipped")

	unlinked, err := repo.ListUnlinkedPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unlinked, 1)
	assert.Equal(t, flagged.ID, unlinked[0].ID)

	_, err = NewTriggersRepo(db).Schedule(ctx, core.Trigger{
		ID: "trg-1", ItemKey: flagged.ID, ItemIDs: []string{flagged.ID}, PersonID: toni.ID,
		TriggerAt: t0.Add(time.Hour), CreatedAt: t0, UpdatedAt: t0,
	})
	require.NoError(t, err)

	unlinked, err = repo.ListUnlinkedPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unlinked)
}

func TestItemsRepo_Embeddings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewItemsRepo(db)
	item := seedItem(t, db, "", "salarios")

	emb := core.MemoryItemEmbedding{
		ItemID: item.ID, Source: core.EmbeddingSourceContent, Model: "hash-8",
		Vector: []float32{1, 0, 0}, CreatedAt: t0,
	}
	require.NoError(t, repo.SaveEmbedding(ctx, emb))

	emb.Vector = []float32{0, 1, 0}
	require.NoError(t, repo.SaveEmbedding(ctx, emb))

	all, err := repo.ListEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []float32{0, 1, 0}, all[0].Vector)
	assert.Equal(t, "hash-8", all[0].Model)
}
