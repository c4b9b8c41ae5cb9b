package people

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/storage/sqlite"
	"github.com/sandevgo/memobot/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "people.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewResolver(sqlite.NewPeopleRepo(db), clock.NewFake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	r := newResolver(t)

	toni, err := r.Resolve(ctx, "toni")
	require.NoError(t, err)
	assert.Equal(t, "Toni", toni.DisplayName)
	assert.Equal(t, []string{"toni"}, toni.Aliases)

	again, err := r.Resolve(ctx, "  TONI ")
	require.NoError(t, err)
	assert.Equal(t, toni.ID, again.ID, "identity is stable across spellings")
	assert.Len(t, again.Aliases, 1, "case variants are not new aliases")

	accented, err := r.Resolve(ctx, "Tóni")
	require.NoError(t, err)
	assert.Equal(t, toni.ID, accented.ID)

	people, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 1)

	_, err = r.Resolve(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestResolver_LookupNeverCreates(t *testing.T) {
	ctx := context.Background()
	r := newResolver(t)

	_, err := r.Lookup(ctx, "Ana")
	assert.ErrorIs(t, err, core.ErrNotFound)

	people, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, people)

	ana, err := r.Resolve(ctx, "Ana")
	require.NoError(t, err)
	found, err := r.Lookup(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, found.ID)
}
