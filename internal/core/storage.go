package core

import (
	"context"
	"time"
)

type PersonRepository interface {
	Create(ctx context.Context, p Person, normalizedName string) error
	Get(ctx context.Context, id string) (Person, error)
	// FindByName matches a normalised name against display names and aliases.
	FindByName(ctx context.Context, normalizedName string) (Person, error)
	AddAlias(ctx context.Context, personID, alias, normalizedAlias string, at time.Time) error
	List(ctx context.Context) ([]Person, error)
}

type ItemFilter struct {
	PersonID string
	Status   ItemStatus
	Kind     ItemKind
	// Newest orders by updated_at descending instead of created_at ascending.
	Newest bool
	Limit  int
}

// ContentUpdate is a merge-enrichment applied under an optimistic version check.
type ContentUpdate struct {
	ID              string
	ExpectedVersion int64
	Content         string
	Summary         string
	DueAt           *time.Time
	NeedsEmbedding  bool
	UpdatedAt       time.Time
}

type ItemRepository interface {
	Create(ctx context.Context, item MemoryItem) error
	Get(ctx context.Context, id string) (MemoryItem, error)
	GetMany(ctx context.Context, ids []string) ([]MemoryItem, error)
	FindPendingByFingerprint(ctx context.Context, personID, fingerprint string) (MemoryItem, error)
	UpdateContent(ctx context.Context, upd ContentUpdate) (MemoryItem, error)
	SetNeedsEmbedding(ctx context.Context, id string, needs bool) error
	// TransitionStatus applies from -> to only if the row is still in from.
	TransitionStatus(ctx context.Context, id string, from, to ItemStatus, at time.Time) (bool, error)
	List(ctx context.Context, f ItemFilter) ([]MemoryItem, error)
	ListNeedingEmbedding(ctx context.Context, limit int) ([]MemoryItem, error)
	ListUnlinkedPending(ctx context.Context, limit int) ([]MemoryItem, error)
	ListWithoutLog(ctx context.Context, createdBefore time.Time, limit int) ([]MemoryItem, error)

	SaveEmbedding(ctx context.Context, emb MemoryItemEmbedding) error
	ListEmbeddings(ctx context.Context) ([]MemoryItemEmbedding, error)
}

type EventRepository interface {
	Upsert(ctx context.Context, ev CalendarEvent) (CalendarEvent, error)
	Get(ctx context.Context, id string) (CalendarEvent, error)
	// ListUpcomingForPerson returns events ending after now, earliest start first.
	ListUpcomingForPerson(ctx context.Context, personID string, now time.Time) ([]CalendarEvent, error)
}

type TriggerRepository interface {
	// Schedule inserts a trigger or moves the active one for the same
	// (item key, event) pair to the new time.
	Schedule(ctx context.Context, t Trigger) (Trigger, error)
	Get(ctx context.Context, id string) (Trigger, error)
	ListActiveByItem(ctx context.Context, itemID string) ([]Trigger, error)
	ListByItem(ctx context.Context, itemID string) ([]Trigger, error)
	Cancel(ctx context.Context, id string, at time.Time) (bool, error)
	Reschedule(ctx context.Context, id string, triggerAt, at time.Time) (bool, error)

	// ListActive returns scheduled triggers regardless of due time.
	ListActive(ctx context.Context, limit int) ([]Trigger, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]Trigger, error)
	Claim(ctx context.Context, id, token string, now time.Time) (bool, error)
	MarkSent(ctx context.Context, id, token string, at time.Time) (bool, error)
	MarkSkipped(ctx context.Context, id, token, reason string, at time.Time) (bool, error)
	Release(ctx context.Context, id, token string, attempts int, nextAttemptAt time.Time, lastErr string, at time.Time) (bool, error)
	ListStaleInFlight(ctx context.Context, claimedBefore time.Time, limit int) ([]Trigger, error)
}

type InteractionRepository interface {
	Append(ctx context.Context, e InteractionEntry) error
	ListByItem(ctx context.Context, itemID string) ([]InteractionEntry, error)
	CountByAction(ctx context.Context, itemID string, action Action) (int, error)
}
