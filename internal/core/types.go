package core

import "time"

const (
	AppName      = "memobot"
	AppUserAgent = "memobot/0.1"
	AppVersion   = "0.1.0"
)

type ItemKind string

const (
	KindIdea     ItemKind = "idea"
	KindReminder ItemKind = "reminder"
	KindNote     ItemKind = "note"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindIdea, KindReminder, KindNote:
		return true
	}
	return false
}

type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusDiscussed ItemStatus = "discussed"
	StatusArchived  ItemStatus = "archived"
)

// CanTransition reports whether from -> to is allowed. Items never re-enter
// pending once they have left it.
func (s ItemStatus) CanTransition(to ItemStatus) bool {
	return s == StatusPending && (to == StatusDiscussed || to == StatusArchived)
}

type Person struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Aliases     []string  `json:"aliases"`
	CreatedAt   time.Time `json:"created_at"`
}

type MemoryItem struct {
	ID             string     `json:"id"`
	Kind           ItemKind   `json:"kind"`
	Content        string     `json:"content"`
	Summary        string     `json:"normalized_summary,omitempty"`
	PersonID       string     `json:"related_person_id,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	Status         ItemStatus `json:"status"`
	Fingerprint    string     `json:"fingerprint"`
	NeedsEmbedding bool       `json:"needs_embedding"`
	Version        int64      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	EmbeddingSourceContent = "content"
	EmbeddingSourceSummary = "summary"
)

type MemoryItemEmbedding struct {
	ItemID    string    `json:"item_id"`
	Source    string    `json:"source"`
	Model     string    `json:"model"`
	Vector    []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type CalendarEvent struct {
	ID              string    `json:"id"`
	Provider        string    `json:"provider"`
	ProviderEventID string    `json:"provider_event_id"`
	Title           string    `json:"title"`
	StartAt         time.Time `json:"start_at"`
	EndAt           time.Time `json:"end_at"`
	Attendees       []string  `json:"attendees,omitempty"`
	PersonID        string    `json:"related_person_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TriggerState string

const (
	TriggerScheduled TriggerState = "scheduled"
	TriggerInFlight  TriggerState = "in_flight"
	TriggerSent      TriggerState = "sent"
	TriggerCancelled TriggerState = "cancelled"
	TriggerSkipped   TriggerState = "skipped"
)

func (s TriggerState) Terminal() bool {
	return s == TriggerSent || s == TriggerCancelled || s == TriggerSkipped
}

type Trigger struct {
	ID            string       `json:"id"`
	ItemKey       string       `json:"item_key"`
	ItemIDs       []string     `json:"item_ids"`
	EventID       string       `json:"calendar_event_id,omitempty"`
	PersonID      string       `json:"person_id,omitempty"`
	TriggerAt     time.Time    `json:"trigger_at"`
	State         TriggerState `json:"state"`
	Attempts      int          `json:"attempts"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	LastError     string       `json:"last_error,omitempty"`
	ClaimToken    string       `json:"-"`
	ClaimedAt     *time.Time   `json:"claimed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type Action string

const (
	ActionCreated   Action = "created"
	ActionMerged    Action = "merged"
	ActionReminded  Action = "reminded"
	ActionDiscussed Action = "discussed"
	ActionPostponed Action = "postponed"
	ActionArchived  Action = "archived"
)

type InteractionEntry struct {
	ID        string         `json:"id"`
	ItemID    string         `json:"memory_item_id"`
	Action    Action         `json:"action"`
	EventID   string         `json:"calendar_event_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// CaptureRequest is the parsed form of an inbound note.
type CaptureRequest struct {
	Kind       ItemKind   `json:"kind"`
	Content    string     `json:"content"`
	Summary    string     `json:"summary,omitempty"`
	PersonName string     `json:"person_name,omitempty"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	Confidence float64    `json:"confidence"`
}

type Intent string

const (
	IntentCreateMemory Intent = "create_memory"
	IntentListPending  Intent = "list_pending"
	IntentUnknown      Intent = "unknown"
)

type ParseResult struct {
	Intent     Intent
	Confidence float64
	PersonName string
	Requests   []CaptureRequest
}

// Briefing is the read model for "what do I have for this person/meeting".
type Briefing struct {
	Person            *Person        `json:"person,omitempty"`
	Event             *CalendarEvent `json:"event,omitempty"`
	Pending           []MemoryItem   `json:"pending"`
	RecentlyDiscussed []MemoryItem   `json:"recently_discussed"`
}
