package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/memobot/internal/core"
)

const triggerColumns = `id, item_key, calendar_event_id, person_id, trigger_at, state, attempts,
	next_attempt_at, last_error, claim_token, claimed_at, created_at, updated_at`

// TriggersRepo stores reminder triggers. Every state change is a conditional
// UPDATE on the current state, so the row is the lock of record.
type TriggersRepo struct {
	db *sql.DB
}

func NewTriggersRepo(db *sql.DB) *TriggersRepo {
	return &TriggersRepo{db: db}
}

func (r *TriggersRepo) Schedule(ctx context.Context, t core.Trigger) (core.Trigger, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Trigger{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+triggerColumns+` FROM reminder_trigger
		WHERE item_key = ? AND calendar_event_id = ? AND state IN ('scheduled', 'in_flight')`,
		t.ItemKey, t.EventID,
	)
	existing, err := scanTrigger(row)
	switch {
	case err == nil:
		if existing.State == core.TriggerInFlight {
			return existing, fmt.Errorf("trigger %s is being dispatched: %w", existing.ID, core.ErrConflictingUpdate)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE reminder_trigger
			SET trigger_at = ?, next_attempt_at = ?, attempts = 0, last_error = '', updated_at = ?
			WHERE id = ? AND state = 'scheduled'`,
			formatTime(t.TriggerAt), formatTime(t.TriggerAt), formatTime(t.UpdatedAt), existing.ID,
		)
		if err != nil {
			return core.Trigger{}, fmt.Errorf("failed to reschedule trigger: %w", err)
		}
		existing.TriggerAt = t.TriggerAt
		existing.NextAttemptAt = t.TriggerAt
		existing.Attempts = 0
		existing.LastError = ""
		existing.UpdatedAt = t.UpdatedAt
		t = existing

	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reminder_trigger (`+triggerColumns+`)
			VALUES (?, ?, ?, ?, ?, 'scheduled', 0, ?, '', '', NULL, ?, ?)`,
			t.ID, t.ItemKey, t.EventID, t.PersonID, formatTime(t.TriggerAt),
			formatTime(t.TriggerAt), formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return core.Trigger{}, fmt.Errorf("active trigger for %s: %w", t.ItemKey, core.ErrConflictingUpdate)
			}
			return core.Trigger{}, fmt.Errorf("failed to insert trigger: %w", err)
		}
		for _, itemID := range t.ItemIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reminder_trigger_item (trigger_id, memory_item_id) VALUES (?, ?)`,
				t.ID, itemID); err != nil {
				return core.Trigger{}, fmt.Errorf("failed to link trigger item: %w", err)
			}
		}
		t.State = core.TriggerScheduled
		t.NextAttemptAt = t.TriggerAt

	default:
		return core.Trigger{}, fmt.Errorf("failed to look up trigger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Trigger{}, err
	}
	if t.ItemIDs == nil {
		return r.withItems(ctx, t)
	}
	return t, nil
}

func (r *TriggersRepo) Get(ctx context.Context, id string) (core.Trigger, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+triggerColumns+` FROM reminder_trigger WHERE id = ?`, id)
	t, err := scanTrigger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Trigger{}, err
	}
	return r.withItems(ctx, t)
}

func (r *TriggersRepo) ListActiveByItem(ctx context.Context, itemID string) ([]core.Trigger, error) {
	return r.query(ctx, `
		SELECT `+prefixed("t", triggerColumns)+` FROM reminder_trigger t
		JOIN reminder_trigger_item ti ON ti.trigger_id = t.id
		WHERE ti.memory_item_id = ? AND t.state IN ('scheduled', 'in_flight')
		ORDER BY t.trigger_at ASC`, itemID)
}

func (r *TriggersRepo) ListByItem(ctx context.Context, itemID string) ([]core.Trigger, error) {
	return r.query(ctx, `
		SELECT `+prefixed("t", triggerColumns)+` FROM reminder_trigger t
		JOIN reminder_trigger_item ti ON ti.trigger_id = t.id
		WHERE ti.memory_item_id = ?
		ORDER BY t.created_at ASC`, itemID)
}

func (r *TriggersRepo) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE reminder_trigger SET state = 'cancelled', updated_at = ?
		WHERE id = ? AND state = 'scheduled'`, formatTime(at), id)
}

func (r *TriggersRepo) Reschedule(ctx context.Context, id string, triggerAt, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE reminder_trigger
		SET trigger_at = ?, next_attempt_at = ?, attempts = 0, last_error = '', updated_at = ?
		WHERE id = ? AND state = 'scheduled'`,
		formatTime(triggerAt), formatTime(triggerAt), formatTime(at), id)
}

func (r *TriggersRepo) ListActive(ctx context.Context, limit int) ([]core.Trigger, error) {
	return r.query(ctx, `
		SELECT `+triggerColumns+` FROM reminder_trigger
		WHERE state = 'scheduled'
		ORDER BY trigger_at ASC, id ASC LIMIT ?`, limit)
}

func (r *TriggersRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]core.Trigger, error) {
	ts := formatTime(now)
	return r.query(ctx, `
		SELECT `+triggerColumns+` FROM reminder_trigger
		WHERE state = 'scheduled' AND trigger_at <= ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC, id ASC LIMIT ?`, ts, ts, limit)
}

// Claim moves a due trigger to in_flight. Only one caller can win.
func (r *TriggersRepo) Claim(ctx context.Context, id, token string, now time.Time) (bool, error) {
	ts := formatTime(now)
	return r.exec(ctx, `
		UPDATE reminder_trigger
		SET state = 'in_flight', claim_token = ?, claimed_at = ?, updated_at = ?
		WHERE id = ? AND state = 'scheduled' AND next_attempt_at <= ?`,
		token, ts, ts, id, ts)
}

func (r *TriggersRepo) MarkSent(ctx context.Context, id, token string, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE reminder_trigger SET state = 'sent', last_error = '', updated_at = ?
		WHERE id = ? AND state = 'in_flight' AND claim_token = ?`,
		formatTime(at), id, token)
}

func (r *TriggersRepo) MarkSkipped(ctx context.Context, id, token, reason string, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE reminder_trigger SET state = 'skipped', last_error = ?, updated_at = ?
		WHERE id = ? AND state = 'in_flight' AND claim_token = ?`,
		reason, formatTime(at), id, token)
}

// Release returns a claimed trigger to scheduled after a failed dispatch.
func (r *TriggersRepo) Release(ctx context.Context, id, token string, attempts int, nextAttemptAt time.Time, lastErr string, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE reminder_trigger
		SET state = 'scheduled', attempts = ?, next_attempt_at = ?, last_error = ?,
			claim_token = '', claimed_at = NULL, updated_at = ?
		WHERE id = ? AND state = 'in_flight' AND claim_token = ?`,
		attempts, formatTime(nextAttemptAt), lastErr, formatTime(at), id, token)
}

func (r *TriggersRepo) ListStaleInFlight(ctx context.Context, claimedBefore time.Time, limit int) ([]core.Trigger, error) {
	return r.query(ctx, `
		SELECT `+triggerColumns+` FROM reminder_trigger
		WHERE state = 'in_flight' AND claimed_at < ?
		ORDER BY claimed_at ASC LIMIT ?`, formatTime(claimedBefore), limit)
}

func (r *TriggersRepo) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update trigger: %w", err)
	}
	return affected(res)
}

func (r *TriggersRepo) query(ctx context.Context, query string, args ...any) ([]core.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	var triggers []core.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		triggers = append(triggers, t)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range triggers {
		if triggers[i], err = r.withItems(ctx, triggers[i]); err != nil {
			return nil, err
		}
	}
	return triggers, nil
}

func (r *TriggersRepo) withItems(ctx context.Context, t core.Trigger) (core.Trigger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT memory_item_id FROM reminder_trigger_item WHERE trigger_id = ? ORDER BY memory_item_id`, t.ID)
	if err != nil {
		return core.Trigger{}, fmt.Errorf("failed to query trigger items: %w", err)
	}
	defer rows.Close()

	t.ItemIDs = nil
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return core.Trigger{}, err
		}
		t.ItemIDs = append(t.ItemIDs, id)
	}
	return t, rows.Err()
}

func scanTrigger(s scanner) (core.Trigger, error) {
	var (
		t                                 core.Trigger
		triggerAt, next, created, updated string
		claimed                           sql.NullString
	)
	err := s.Scan(&t.ID, &t.ItemKey, &t.EventID, &t.PersonID, &triggerAt, &t.State, &t.Attempts,
		&next, &t.LastError, &t.ClaimToken, &claimed, &created, &updated)
	if err != nil {
		return core.Trigger{}, err
	}
	if t.TriggerAt, err = parseTime(triggerAt); err != nil {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	if t.NextAttemptAt, err = parseTime(next); err != nil {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	if t.ClaimedAt, err = parseNullTime(claimed); err != nil {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Trigger{}, fmt.Errorf("trigger %s: %w", t.ID, err)
	}
	return t, nil
}
