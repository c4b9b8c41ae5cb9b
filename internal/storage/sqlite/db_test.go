package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPerson(t *testing.T, db *sql.DB, name string) core.Person {
	t.Helper()
	p := core.Person{ID: uuid.NewString(), DisplayName: name, Aliases: []string{name}, CreatedAt: t0}
	require.NoError(t, NewPeopleRepo(db).Create(context.Background(), p, normalizeForTest(name)))
	return p
}

func newItem(personID, content string) core.MemoryItem {
	return core.MemoryItem{
		ID:          uuid.NewString(),
		Kind:        core.KindReminder,
		Content:     content,
		PersonID:    personID,
		Status:      core.StatusPending,
		Fingerprint: "fp-" + content,
		Version:     1,
		CreatedAt:   t0,
		UpdatedAt:   t0,
	}
}

func seedItem(t *testing.T, db *sql.DB, personID, content string) core.MemoryItem {
	t.Helper()
	item := newItem(personID, content)
	require.NoError(t, NewItemsRepo(db).Create(context.Background(), item))
	return item
}

func normalizeForTest(s string) string {
	out := []rune{}
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func TestTimeRoundTrip(t *testing.T) {
	in := time.Date(2026, 1, 2, 3, 4, 5, 6, time.FixedZone("CET", 3600))
	got, err := parseTime(formatTime(in))
	require.NoError(t, err)
	require.True(t, in.Equal(got))
	require.Less(t, formatTime(t0), formatTime(t0.Add(time.Nanosecond)))
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1, 3.5}
	blob, err := serializeVector(vec)
	require.NoError(t, err)
	got, err := deserializeVector(blob, 3)
	require.NoError(t, err)
	require.Equal(t, vec, got)

	_, err = deserializeVector(blob, 4)
	require.Error(t, err)
}
