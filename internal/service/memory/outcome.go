package memory

import (
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/internal/service/calendar"
)

type OutcomeKind string

const (
	OutcomeCreated          OutcomeKind = "created"
	OutcomeMerged           OutcomeKind = "merged"
	OutcomeDuplicate        OutcomeKind = "duplicate"
	OutcomeAlreadyDiscussed OutcomeKind = "already_discussed"
)

// Outcome is the result of a capture. Exactly one of Created, Merged,
// Duplicate or AlreadyDiscussed.
type Outcome interface {
	Item() core.MemoryItem
	Kind() OutcomeKind
}

// Created is a new pending item. Degraded is set when it was stored without
// an embedding and waits for the sweep.
type Created struct {
	MemoryItem core.MemoryItem     `json:"item"`
	Link       calendar.LinkResult `json:"link"`
	Degraded   bool                `json:"degraded,omitempty"`
}

// Merged is an existing pending item enriched with the incoming text.
type Merged struct {
	MemoryItem core.MemoryItem     `json:"item"`
	MergedFrom string              `json:"merged_from"`
	Score      float32             `json:"score"`
	Link       calendar.LinkResult `json:"link"`
}

// Duplicate is an exact fingerprint match. Nothing was written.
type Duplicate struct {
	MemoryItem core.MemoryItem `json:"item"`
}

// AlreadyDiscussed reports that the topic was closed before. Nothing was
// written and the item stays discussed.
type AlreadyDiscussed struct {
	MemoryItem core.MemoryItem `json:"item"`
	Score      float32         `json:"score"`
}

func (o Created) Item() core.MemoryItem          { return o.MemoryItem }
func (o Merged) Item() core.MemoryItem           { return o.MemoryItem }
func (o Duplicate) Item() core.MemoryItem        { return o.MemoryItem }
func (o AlreadyDiscussed) Item() core.MemoryItem { return o.MemoryItem }

func (Created) Kind() OutcomeKind          { return OutcomeCreated }
func (Merged) Kind() OutcomeKind           { return OutcomeMerged }
func (Duplicate) Kind() OutcomeKind        { return OutcomeDuplicate }
func (AlreadyDiscussed) Kind() OutcomeKind { return OutcomeAlreadyDiscussed }

// IsCreated reports whether the capture produced a new item.
func IsCreated(o Outcome) bool {
	return o != nil && o.Kind() == OutcomeCreated
}
