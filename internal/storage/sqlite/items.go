package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

const itemColumns = `id, kind, content, normalized_summary, related_person_id, due_at, status,
	fingerprint, needs_embedding, version, created_at, updated_at`

type ItemsRepo struct {
	db *sql.DB
}

func NewItemsRepo(db *sql.DB) *ItemsRepo {
	return &ItemsRepo{db: db}
}

func (r *ItemsRepo) Create(ctx context.Context, item core.MemoryItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memory_item (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Kind, item.Content, item.Summary, nullString(item.PersonID),
		formatNullTime(item.DueAt), item.Status, item.Fingerprint, item.NeedsEmbedding,
		item.Version, formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("memory item fingerprint %s: %w", item.Fingerprint, core.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert memory item: %w", err)
	}
	return nil
}

func (r *ItemsRepo) Get(ctx context.Context, id string) (core.MemoryItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM memory_item WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MemoryItem{}, fmt.Errorf("memory item %s: %w", id, core.ErrNotFound)
	}
	return item, err
}

// GetMany returns the items that exist, in no particular order.
func (r *ItemsRepo) GetMany(ctx context.Context, ids []string) ([]core.MemoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + itemColumns + ` FROM memory_item WHERE id IN (` + placeholders(len(ids)) + `)`
	return r.query(ctx, query, args...)
}

func (r *ItemsRepo) FindPendingByFingerprint(ctx context.Context, personID, fingerprint string) (core.MemoryItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM memory_item
		WHERE COALESCE(related_person_id, '') = ? AND fingerprint = ? AND status = 'pending'`,
		personID, fingerprint,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MemoryItem{}, core.ErrNotFound
	}
	return item, err
}

// UpdateContent applies a merge-enrichment if the row still has the expected
// version and is pending. Otherwise it reports ErrConflictingUpdate.
func (r *ItemsRepo) UpdateContent(ctx context.Context, upd core.ContentUpdate) (core.MemoryItem, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memory_item
		SET content = ?, normalized_summary = ?, due_at = COALESCE(due_at, ?),
			needs_embedding = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = 'pending'`,
		upd.Content, upd.Summary, formatNullTime(upd.DueAt), upd.NeedsEmbedding,
		formatTime(upd.UpdatedAt), upd.ID, upd.ExpectedVersion,
	)
	if err != nil {
		return core.MemoryItem{}, fmt.Errorf("failed to update memory item: %w", err)
	}
	ok, err := affected(res)
	if err != nil {
		return core.MemoryItem{}, err
	}
	if !ok {
		return core.MemoryItem{}, fmt.Errorf("memory item %s version %d: %w", upd.ID, upd.ExpectedVersion, core.ErrConflictingUpdate)
	}
	return r.Get(ctx, upd.ID)
}

func (r *ItemsRepo) SetNeedsEmbedding(ctx context.Context, id string, needs bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE memory_item SET needs_embedding = ? WHERE id = ?`, needs, id)
	if err != nil {
		return fmt.Errorf("failed to flag memory item: %w", err)
	}
	return nil
}

func (r *ItemsRepo) TransitionStatus(ctx context.Context, id string, from, to core.ItemStatus, at time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("status %s -> %s: %w", from, to, core.ErrInvalidInput)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE memory_item SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, formatTime(at), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition memory item: %w", err)
	}
	return affected(res)
}

func (r *ItemsRepo) List(ctx context.Context, f core.ItemFilter) ([]core.MemoryItem, error) {
	var where []string
	var args []any
	if f.PersonID != "" {
		where = append(where, "related_person_id = ?")
		args = append(args, f.PersonID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}

	query := `SELECT ` + itemColumns + ` FROM memory_item`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Newest {
		query += ` ORDER BY updated_at DESC, id DESC`
	} else {
		query += ` ORDER BY created_at ASC, id ASC`
	}
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return r.query(ctx, query, args...)
}

func (r *ItemsRepo) ListNeedingEmbedding(ctx context.Context, limit int) ([]core.MemoryItem, error) {
	return r.query(ctx, `
		SELECT `+itemColumns+` FROM memory_item
		WHERE needs_embedding = 1
		ORDER BY created_at ASC LIMIT ?`, limit)
}

// ListUnlinkedPending returns pending items with a person, no due time and no
// active trigger.
func (r *ItemsRepo) ListUnlinkedPending(ctx context.Context, limit int) ([]core.MemoryItem, error) {
	return r.query(ctx, `
		SELECT `+itemColumns+` FROM memory_item m
		WHERE m.status = 'pending' AND m.related_person_id IS NOT NULL AND m.due_at IS NULL
		AND NOT EXISTS (
			SELECT 1 FROM reminder_trigger_item ti
			JOIN reminder_trigger t ON t.id = ti.trigger_id
			WHERE ti.memory_item_id = m.id AND t.state IN ('scheduled', 'in_flight')
		)
		ORDER BY m.created_at ASC LIMIT ?`, limit)
}

func (r *ItemsRepo) ListWithoutLog(ctx context.Context, createdBefore time.Time, limit int) ([]core.MemoryItem, error) {
	return r.query(ctx, `
		SELECT `+itemColumns+` FROM memory_item m
		WHERE m.created_at < ?
		AND NOT EXISTS (SELECT 1 FROM interaction_log l WHERE l.memory_item_id = m.id)
		ORDER BY m.created_at ASC LIMIT ?`, formatTime(createdBefore), limit)
}

func (r *ItemsRepo) query(ctx context.Context, query string, args ...any) ([]core.MemoryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory items: %w", err)
	}
	defer rows.Close()

	var items []core.MemoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(s scanner) (core.MemoryItem, error) {
	var (
		item             core.MemoryItem
		person, due      sql.NullString
		created, updated string
	)
	err := s.Scan(&item.ID, &item.Kind, &item.Content, &item.Summary, &person, &due, &item.Status,
		&item.Fingerprint, &item.NeedsEmbedding, &item.Version, &created, &updated)
	if err != nil {
		return core.MemoryItem{}, err
	}
	item.PersonID = person.String
	if item.DueAt, err = parseNullTime(due); err != nil {
		return core.MemoryItem{}, fmt.Errorf("memory item %s due_at: %w", item.ID, err)
	}
	if item.CreatedAt, err = parseTime(created); err != nil {
		return core.MemoryItem{}, fmt.Errorf("memory item %s created_at: %w", item.ID, err)
	}
	if item.UpdatedAt, err = parseTime(updated); err != nil {
		return core.MemoryItem{}, fmt.Errorf("memory item %s updated_at: %w", item.ID, err)
	}
	return item, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
