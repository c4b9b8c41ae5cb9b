package vector

import (
	"context"
	"testing"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(item, source, person string, kind core.ItemKind, vec ...float32) core.IndexEntry {
	return core.IndexEntry{ItemID: item, Source: source, PersonID: person, Kind: kind, Vector: vec}
}

func TestIndex_SearchScopesAndDedups(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex()
	require.NoError(t, err)

	n, err := idx.Rebuild(ctx, []core.IndexEntry{
		entry("a", core.EmbeddingSourceContent, "toni", core.KindReminder, 1, 0, 0),
		entry("a", core.EmbeddingSourceSummary, "toni", core.KindReminder, 0.9, 0.1, 0),
		entry("b", core.EmbeddingSourceContent, "toni", core.KindReminder, 0, 1, 0),
		entry("c", core.EmbeddingSourceContent, "ana", core.KindReminder, 1, 0, 0),
		entry("d", core.EmbeddingSourceContent, "toni", core.KindIdea, 1, 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	matches, err := idx.Search(ctx, core.SearchQuery{
		Vector: []float32{1, 0, 0}, PersonID: "toni", Kind: core.KindReminder, TopK: 5,
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ItemID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
	assert.Equal(t, "b", matches[1].ItemID)
	assert.Less(t, matches[1].Score, matches[0].Score)

	// Unscoped by person.
	matches, err = idx.Search(ctx, core.SearchQuery{Vector: []float32{1, 0, 0}, TopK: 10})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, m := range matches {
		ids[m.ItemID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true, "d": true}, ids)
}

func TestIndex_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex()
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, entry("a", core.EmbeddingSourceContent, "", core.KindNote, 1, 0)))
	require.NoError(t, idx.Upsert(ctx, entry("a", core.EmbeddingSourceContent, "", core.KindNote, 0, 1)))
	assert.Equal(t, 1, idx.Count())

	matches, err := idx.Search(ctx, core.SearchQuery{Vector: []float32{0, 1}, TopK: 1})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)
}

func TestIndex_EdgeCases(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex()
	require.NoError(t, err)

	matches, err := idx.Search(ctx, core.SearchQuery{Vector: []float32{1, 0}, TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, matches, "empty index")

	assert.Error(t, idx.Upsert(ctx, entry("z", core.EmbeddingSourceContent, "", core.KindNote, 0, 0)))

	vec := []float32{3, 4}
	require.NoError(t, idx.Upsert(ctx, entry("a", core.EmbeddingSourceContent, "", core.KindNote, vec...)))
	assert.Equal(t, []float32{3, 4}, vec, "caller vector must not be mutated")
}

func TestIndex_StatusScope(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex()
	require.NoError(t, err)

	_, err = idx.Rebuild(ctx, []core.IndexEntry{
		entry("a", core.EmbeddingSourceContent, "", core.KindNote, 1, 0),
		entry("a", core.EmbeddingSourceSummary, "", core.KindNote, 1, 0.1),
		entry("b", core.EmbeddingSourceContent, "", core.KindNote, 0.9, 0.1),
	})
	require.NoError(t, err)

	search := func(status core.ItemStatus) []string {
		matches, err := idx.Search(ctx, core.SearchQuery{Vector: []float32{1, 0}, Status: status, TopK: 5})
		require.NoError(t, err)
		var ids []string
		for _, m := range matches {
			ids = append(ids, m.ItemID)
		}
		return ids
	}

	assert.Equal(t, []string{"a", "b"}, search(core.StatusPending), "entries default to pending")

	require.NoError(t, idx.SetStatus(ctx, "a", core.StatusDiscussed))
	assert.Equal(t, []string{"b"}, search(core.StatusPending))
	assert.Equal(t, []string{"a"}, search(core.StatusDiscussed))
	assert.NoError(t, idx.SetStatus(ctx, "missing", core.StatusDiscussed))

	require.NoError(t, idx.Remove(ctx, "a"))
	assert.Equal(t, 1, idx.Count())
	assert.Empty(t, search(core.StatusDiscussed))
}
