package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sandevgo/memobot/internal/core"
)

// InteractionsRepo is append-only; the schema rejects UPDATE and DELETE.
type InteractionsRepo struct {
	db *sql.DB
}

func NewInteractionsRepo(db *sql.DB) *InteractionsRepo {
	return &InteractionsRepo{db: db}
}

func (r *InteractionsRepo) Append(ctx context.Context, e core.InteractionEntry) error {
	meta := []byte("{}")
	if len(e.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(e.Meta); err != nil {
			return fmt.Errorf("marshal log meta: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interaction_log (id, memory_item_id, action, calendar_event_id, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ItemID, e.Action, nullString(e.EventID), string(meta), formatTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Same entry id retried after an ambiguous failure.
			return nil
		}
		return fmt.Errorf("failed to append interaction log: %w", err)
	}
	return nil
}

// ListByItem returns entries oldest first. Entry ids are ULIDs, so id order
// is creation order.
func (r *InteractionsRepo) ListByItem(ctx context.Context, itemID string) ([]core.InteractionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, memory_item_id, action, calendar_event_id, meta, created_at
		FROM interaction_log WHERE memory_item_id = ? ORDER BY id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction log: %w", err)
	}
	defer rows.Close()

	var entries []core.InteractionEntry
	for rows.Next() {
		var (
			e       core.InteractionEntry
			event   sql.NullString
			meta    string
			created string
		)
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Action, &event, &meta, &created); err != nil {
			return nil, err
		}
		e.EventID = event.String
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Meta); err != nil {
				return nil, fmt.Errorf("interaction %s meta: %w", e.ID, err)
			}
		}
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *InteractionsRepo) CountByAction(ctx context.Context, itemID string, action core.Action) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interaction_log WHERE memory_item_id = ? AND action = ?`,
		itemID, action).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}
