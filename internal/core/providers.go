package core

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

type IndexEntry struct {
	ItemID   string
	Source   string
	PersonID string
	Kind     ItemKind
	// Status defaults to pending.
	Status ItemStatus
	Vector []float32
}

type SearchQuery struct {
	Vector   []float32
	PersonID string
	Kind     ItemKind
	Status   ItemStatus
	TopK     int
}

type Match struct {
	ItemID string
	Score  float32
}

type SimilarityIndex interface {
	Upsert(ctx context.Context, e IndexEntry) error
	// Search returns at most TopK matches, best first, one per item.
	Search(ctx context.Context, q SearchQuery) ([]Match, error)
	// SetStatus retags the vectors of an indexed item. Unknown items are ignored.
	SetStatus(ctx context.Context, itemID string, status ItemStatus) error
	Remove(ctx context.Context, itemID string) error
}

type IntentParser interface {
	Parse(ctx context.Context, text string) (ParseResult, error)
}

// Dispatcher delivers a reminder to the owner's channel. A nil error means
// the channel confirmed delivery.
type Dispatcher interface {
	Send(ctx context.Context, personID, text string) error
}

// Journal appends interaction log entries. It never fails the caller.
type Journal interface {
	Append(ctx context.Context, itemID string, action Action, eventID string, meta map[string]any) InteractionEntry
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type AIProvider interface {
	Chat(ctx context.Context, history []Message) (Message, error)
}
