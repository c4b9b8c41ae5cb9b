package memory

import "github.com/sandevgo/memobot/internal/core"

type candidate struct {
	item  core.MemoryItem
	score float32
}

type decision int

const (
	decideCreate decision = iota
	decideMerge
	decideDiscussed
)

func (d decision) String() string {
	switch d {
	case decideMerge:
		return "merge"
	case decideDiscussed:
		return "already_discussed"
	default:
		return "create"
	}
}

// decide picks the consolidation branch. The best pending match at or above
// mergeAt wins; otherwise the best discussed match at or above discussedAt
// suppresses the capture; otherwise a new item is created. Archived
// candidates never match.
func decide(cands []candidate, mergeAt, discussedAt float32) (decision, candidate) {
	var (
		pending, discussed       candidate
		hasPending, hasDiscussed bool
	)
	for _, c := range cands {
		switch c.item.Status {
		case core.StatusPending:
			if !hasPending || c.score > pending.score {
				pending, hasPending = c, true
			}
		case core.StatusDiscussed:
			if !hasDiscussed || c.score > discussed.score {
				discussed, hasDiscussed = c, true
			}
		}
	}

	if hasPending && pending.score >= mergeAt {
		return decideMerge, pending
	}
	if hasDiscussed && discussed.score >= discussedAt {
		return decideDiscussed, discussed
	}
	return decideCreate, candidate{}
}
